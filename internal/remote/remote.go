// Package remote runs the fixed PowerShell commands on the monitored Hyper-V
// host over SSH or WinRM.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var (
	// ErrConnection marks every failure to reach the host or run a command on it
	ErrConnection = errors.New("remote connection failed")

	// ErrCredentialsUnavailable means a local authentication source (key file
	// or SSH agent) is missing. The plugin exits with 255 in that case.
	ErrCredentialsUnavailable = errors.New("credentials unavailable")
)

// Executor runs a command on the remote host and returns its standard output
type Executor interface {
	Run(ctx context.Context, command string) (string, error)
	Close() error
	Target() string
}

// ConnectionError carries the command that could not be run and the host it
// was meant for.
type ConnectionError struct {
	Target  string
	Command string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("cannot connect to %s: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("cannot run remote command (%s) on %s: %v", e.Command, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

// JoinHostPort formats host and port the way both transports dial them
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Reachable performs a plain TCP dial against host:port so an unreachable
// host is reported before any authentication is attempted.
func Reachable(ctx context.Context, host string, port int, timeout time.Duration) error {
	address := JoinHostPort(host, port)
	d := net.Dialer{Timeout: timeout}

	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return &ConnectionError{Target: address, Err: err}
	}
	return conn.Close()
}
