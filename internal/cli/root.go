// Package cli wires configuration, the remote executor and the check runner
// into the check_hyperv command.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	nagios "github.com/atc0005/go-nagios"
	"github.com/spf13/cobra"

	"github.com/nmslite/check-hyperv/internal/model"
	"github.com/nmslite/check-hyperv/internal/remote"
)

// ExitCredentialsUnavailable is returned when the key file or SSH agent is missing
const ExitCredentialsUnavailable = 255

var version = "dev"

// SetVersion sets the version printed by the version subcommand
func SetVersion(v string) {
	version = v
}

// app carries the streams and the exit status of one invocation
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	exitCode int
}

func (a *app) rootCommand() *cobra.Command {
	flags := &checkFlags{}

	root := &cobra.Command{
		Use:   "check_hyperv",
		Short: "Microsoft Hyper-V check plugin for Icinga 2",
		Long: `check_hyperv connects to a Hyper-V host over SSH (or WinRM), checks the
Hyper-V management service, the Microsoft-Hyper-V feature and every virtual
machine, and prints one line per finding, most severe first.

Exit codes: 0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN,
255 when the SSH key file or agent is unavailable.`,
		Example: `  check_hyperv --hostname myserver.mydomain.com --sshuser john.doe --sshkey mykey \
    --memwarning 20 --memcritical 30 --cpuwarning 60 --cpucritical 80

  check_hyperv --config /etc/icinga2/check_hyperv.yaml --ignore-vm template-2019`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, flags)
		},
	}

	flags.register(root)
	root.AddCommand(a.versionCommand())
	root.AddCommand(a.configCommand())
	return root
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) (code int) {
	a := &app{stdout: stdout, stderr: stderr}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(stdout, model.NewVerdict(model.Unknown, fmt.Sprintf("internal error: %v", r)))
			code = nagios.StateUNKNOWNExitCode
		}
	}()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		return a.fail(err)
	}
	return a.exitCode
}

// fail prints err as an UNKNOWN result. Missing credentials exit with 255.
func (a *app) fail(err error) int {
	fmt.Fprintln(a.stdout, model.NewVerdict(model.Unknown, err.Error()))
	if errors.Is(err, remote.ErrCredentialsUnavailable) {
		return ExitCredentialsUnavailable
	}
	return nagios.StateUNKNOWNExitCode
}
