package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/masterzen/winrm"
)

// WinRMOptions describes a WinRM endpoint and its credentials.
// Basic auth is used unless Domain is set, in which case NTLM is used.
type WinRMOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Domain   string
	HTTPS    bool
	Insecure bool
	Timeout  time.Duration
}

// WinRMExecutor runs the same command strings as the SSH executor through a
// WinRM shell. Connections are per request so Close has nothing to release.
type WinRMExecutor struct {
	client *winrm.Client
	target string
	logger *slog.Logger
}

// NewWinRMExecutor builds the WinRM client
func NewWinRMExecutor(opts WinRMOptions, logger *slog.Logger) (*WinRMExecutor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := winrm.NewEndpoint(
		opts.Host,
		opts.Port,
		opts.HTTPS,
		opts.Insecure,
		nil, // CA certificate
		nil, // client certificate
		nil, // client key
		opts.Timeout,
	)

	var client *winrm.Client
	var err error

	if opts.Domain != "" {
		params := winrm.DefaultParameters
		params.TransportDecorator = func() winrm.Transporter {
			return &winrm.ClientNTLM{}
		}
		client, err = winrm.NewClientWithParameters(
			endpoint,
			fmt.Sprintf("%s\\%s", opts.Domain, opts.User),
			opts.Password,
			params,
		)
	} else {
		client, err = winrm.NewClient(endpoint, opts.User, opts.Password)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create WinRM client: %w", err)
	}

	target := JoinHostPort(opts.Host, opts.Port)
	return &WinRMExecutor{
		client: client,
		target: target,
		logger: logger.With("component", "winrm", "target", target),
	}, nil
}

// Run executes command in a WinRM shell and returns stdout. As with SSH a
// non-zero exit code leaves the decision to the parser.
func (w *WinRMExecutor) Run(ctx context.Context, command string) (string, error) {
	start := time.Now()
	stdout, stderr, exitCode, err := w.client.RunWithContextWithString(ctx, command, "")
	if err != nil {
		return "", &ConnectionError{Target: w.target, Command: command, Err: fmt.Errorf("WinRM execution failed: %w", err)}
	}
	if exitCode != 0 {
		w.logger.Debug("remote command exited non-zero",
			"exit_code", exitCode,
			"stderr", strings.TrimSpace(stderr))
	}
	w.logger.Debug("remote command finished", "duration", time.Since(start), "bytes", len(stdout))
	return stdout, nil
}

// Target returns host:port
func (w *WinRMExecutor) Target() string {
	return w.target
}

// Close is a no-op, WinRM shells are opened per request
func (w *WinRMExecutor) Close() error {
	return nil
}
