package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHOptions describes how to reach and authenticate against the host
type SSHOptions struct {
	Host       string
	Port       int
	User       string
	KeyFile    string
	Passphrase string
	UseAgent   bool
	KnownHosts string // empty disables host key verification
	Timeout    time.Duration
}

// SSHExecutor runs commands over a single SSH client. The client is dialed on
// the first Run and every command gets its own session.
type SSHExecutor struct {
	opts      SSHOptions
	config    *ssh.ClientConfig
	agentConn net.Conn
	client    *ssh.Client
	logger    *slog.Logger
}

// NewSSHExecutor prepares the client configuration without connecting.
// A missing key file or agent is reported as ErrCredentialsUnavailable.
func NewSSHExecutor(opts SSHOptions, logger *slog.Logger) (*SSHExecutor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &SSHExecutor{
		opts:   opts,
		logger: logger.With("component", "ssh", "target", JoinHostPort(opts.Host, opts.Port)),
	}

	var authMethods []ssh.AuthMethod

	if opts.KeyFile != "" {
		signer, err := loadKey(opts.KeyFile, opts.Passphrase)
		if err != nil {
			return nil, err
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	if opts.UseAgent {
		method, err := e.agentAuth()
		if err != nil {
			return nil, err
		}
		authMethods = append(authMethods, method)
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("%w: no ssh key file or agent configured", ErrCredentialsUnavailable)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if opts.KnownHosts != "" {
		cb, err := knownhosts.New(opts.KnownHosts)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to load known_hosts %s: %w", opts.KnownHosts, err)
		}
		hostKeyCallback = cb
	}

	e.config = &ssh.ClientConfig{
		User:            opts.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.Timeout,
	}
	return e, nil
}

func loadKey(path, passphrase string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read ssh key %s: %v", ErrCredentialsUnavailable, path, err)
	}

	var key ssh.Signer
	if passphrase != "" {
		key, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	} else {
		key, err = ssh.ParsePrivateKey(pem)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: ssh key %s is encrypted, a passphrase is required", ErrCredentialsUnavailable, path)
		}
		return nil, fmt.Errorf("%w: failed to parse ssh key %s: %v", ErrCredentialsUnavailable, path, err)
	}
	return key, nil
}

func (e *SSHExecutor) agentAuth() (ssh.AuthMethod, error) {
	authSock := os.Getenv("SSH_AUTH_SOCK")
	if authSock == "" {
		return nil, fmt.Errorf("%w: SSH agent not running (SSH_AUTH_SOCK is not set)", ErrCredentialsUnavailable)
	}

	conn, err := net.Dial("unix", authSock)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot connect to SSH agent at %s: %v", ErrCredentialsUnavailable, authSock, err)
	}
	e.agentConn = conn

	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// Target returns host:port
func (e *SSHExecutor) Target() string {
	return JoinHostPort(e.opts.Host, e.opts.Port)
}

// Run executes command in a fresh session and returns its stdout. A non-zero
// remote exit status is not an error; the output is handed to the parser.
func (e *SSHExecutor) Run(ctx context.Context, command string) (string, error) {
	if err := e.connect(ctx); err != nil {
		return "", &ConnectionError{Target: e.Target(), Command: command, Err: err}
	}

	session, err := e.client.NewSession()
	if err != nil {
		return "", &ConnectionError{Target: e.Target(), Command: command, Err: fmt.Errorf("creating SSH session: %w", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	if err := session.Start(command); err != nil {
		return "", &ConnectionError{Target: e.Target(), Command: command, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		session.Close()
		return "", &ConnectionError{Target: e.Target(), Command: command, Err: ctx.Err()}
	case err = <-done:
	}

	var exitErr *ssh.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		e.logger.Debug("remote command exited non-zero",
			"exit_status", exitErr.ExitStatus(),
			"stderr", strings.TrimSpace(stderr.String()))
	default:
		return "", &ConnectionError{Target: e.Target(), Command: command, Err: err}
	}

	e.logger.Debug("remote command finished", "duration", time.Since(start), "bytes", stdout.Len())
	return stdout.String(), nil
}

func (e *SSHExecutor) connect(ctx context.Context) error {
	if e.client != nil {
		return nil
	}
	address := e.Target()

	d := net.Dialer{Timeout: e.opts.Timeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return e.wrapSSHError(err)
	}

	// bound the handshake, then clear the deadline for the sessions
	if e.opts.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(e.opts.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, address, e.config)
	if err != nil {
		conn.Close()
		return e.wrapSSHError(err)
	}
	conn.SetDeadline(time.Time{})

	e.client = ssh.NewClient(c, chans, reqs)
	e.logger.Debug("ssh connected", "server_version", string(e.client.ServerVersion()))
	return nil
}

// wrapSSHError produces actionable error messages based on SSH error types
func (e *SSHExecutor) wrapSSHError(err error) error {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		if len(keyErr.Want) == 0 {
			return fmt.Errorf("host %s is not listed in %s", e.opts.Host, e.opts.KnownHosts)
		}
		return fmt.Errorf("host key mismatch for %s, check %s: %w", e.opts.Host, e.opts.KnownHosts, err)
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "no supported methods remain"):
		return fmt.Errorf("SSH authentication failed for %s@%s, ensure the key is authorized", e.opts.User, e.opts.Host)
	case strings.Contains(errStr, "i/o timeout") || strings.Contains(errStr, "connection timed out"):
		return fmt.Errorf("connection to %s timed out", e.Target())
	case strings.Contains(errStr, "connection refused"):
		return fmt.Errorf("connection refused by %s, is sshd running on the host?", e.Target())
	default:
		return fmt.Errorf("SSH error connecting to %s: %w", e.Target(), err)
	}
}

// Close releases the SSH client and the agent connection
func (e *SSHExecutor) Close() error {
	var errs []error
	if e.client != nil {
		errs = append(errs, e.client.Close())
		e.client = nil
	}
	if e.agentConn != nil {
		errs = append(errs, e.agentConn.Close())
		e.agentConn = nil
	}
	return errors.Join(errs...)
}
