package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	nagios "github.com/atc0005/go-nagios"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nmslite/check-hyperv/internal/evaluate"
	"github.com/nmslite/check-hyperv/internal/globals"
	"github.com/nmslite/check-hyperv/internal/metrics"
	"github.com/nmslite/check-hyperv/internal/model"
	"github.com/nmslite/check-hyperv/internal/probe"
	"github.com/nmslite/check-hyperv/internal/remote"
	"github.com/nmslite/check-hyperv/internal/report"
)

// Replaced in tests.
var (
	newExecutor = executorFor
	reachable   = remote.Reachable
)

// checkFlags holds the command-line values. Only flags the user actually set
// override the configuration file.
type checkFlags struct {
	configPath string
	envFile    string

	hostname   string
	transport  string
	sshUser    string
	sshKey     string
	sshPort    int
	sshAgent   bool
	knownHosts string

	winrmUser     string
	winrmDomain   string
	winrmPort     int
	winrmHTTPS    bool
	winrmInsecure bool

	memWarning  int
	memCritical int
	cpuWarning  int
	cpuCritical int
	ignoreVM    []string

	timeout           time.Duration
	commandTimeout    time.Duration
	units             string
	connectionFailure string
	noPrecheck        bool
	format            string
	logLevel          string
	logFormat         string
}

func (f *checkFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.SortFlags = false

	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.envFile, "env-file", ".env", "file with HVCHECK_* variables, skipped when missing")

	fs.StringVar(&f.hostname, "hostname", "", "host FQDN or IP")
	fs.StringVar(&f.transport, "transport", "ssh", "remote transport: ssh or winrm")
	fs.StringVar(&f.sshUser, "sshuser", "", "ssh user")
	fs.StringVar(&f.sshKey, "sshkey", "", "ssh private key file")
	fs.IntVar(&f.sshPort, "sshport", 22, "ssh port")
	fs.BoolVar(&f.sshAgent, "ssh-agent", false, "authenticate with the keys held by the SSH agent")
	fs.StringVar(&f.knownHosts, "known-hosts", "", "known_hosts file used to verify the host key")

	fs.StringVar(&f.winrmUser, "winrm-user", "", "WinRM user (password from HVCHECK_WINRM_PASSWORD)")
	fs.StringVar(&f.winrmDomain, "winrm-domain", "", "WinRM domain, enables NTLM authentication")
	fs.IntVar(&f.winrmPort, "winrm-port", 5985, "WinRM port")
	fs.BoolVar(&f.winrmHTTPS, "winrm-https", false, "use the HTTPS WinRM endpoint")
	fs.BoolVar(&f.winrmInsecure, "winrm-insecure", false, "skip TLS certificate verification")

	fs.IntVar(&f.memWarning, "memwarning", 0, "percent warning threshold for VM memory usage")
	fs.IntVar(&f.memCritical, "memcritical", 0, "percent critical threshold for VM memory usage")
	fs.IntVar(&f.cpuWarning, "cpuwarning", 0, "percent warning threshold for VM CPU usage")
	fs.IntVar(&f.cpuCritical, "cpucritical", 0, "percent critical threshold for VM CPU usage")
	fs.StringArrayVar(&f.ignoreVM, "ignore-vm", nil, "VM name to skip, repeatable: --ignore-vm vm1 --ignore-vm vm2")

	fs.DurationVar(&f.timeout, "timeout", 30*time.Second, "connect and authentication timeout")
	fs.DurationVar(&f.commandTimeout, "command-timeout", 60*time.Second, "timeout of each remote command")
	fs.StringVar(&f.units, "units", "legacy", "memory units: legacy (digit count) or binary (1024-based)")
	fs.StringVar(&f.connectionFailure, "connection-failure-state", "warning", "state reported when the host cannot be reached: warning or unknown")
	fs.BoolVar(&f.noPrecheck, "no-precheck", false, "skip the TCP reachability test before the first command")
	fs.StringVar(&f.format, "format", "lines", "output format: lines or nagios")
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level written to stderr: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
}

// apply copies every flag set on the command line into cfg
func (f *checkFlags) apply(fs *pflag.FlagSet, cfg *globals.Config) {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}

	set("hostname", func() { cfg.Host.Hostname = f.hostname })
	set("transport", func() { cfg.Host.Transport = f.transport })
	set("sshuser", func() { cfg.SSH.User = f.sshUser })
	set("sshkey", func() { cfg.SSH.KeyFile = f.sshKey })
	set("sshport", func() { cfg.SSH.Port = f.sshPort })
	set("ssh-agent", func() { cfg.SSH.UseAgent = f.sshAgent })
	set("known-hosts", func() { cfg.SSH.KnownHosts = f.knownHosts })

	set("winrm-user", func() { cfg.WinRM.User = f.winrmUser })
	set("winrm-domain", func() { cfg.WinRM.Domain = f.winrmDomain })
	set("winrm-port", func() { cfg.WinRM.Port = f.winrmPort })
	set("winrm-https", func() { cfg.WinRM.HTTPS = f.winrmHTTPS })
	set("winrm-insecure", func() { cfg.WinRM.Insecure = f.winrmInsecure })

	set("memwarning", func() { cfg.Thresholds.Memory.Warning = f.memWarning })
	set("memcritical", func() { cfg.Thresholds.Memory.Critical = f.memCritical })
	set("cpuwarning", func() { cfg.Thresholds.CPU.Warning = f.cpuWarning })
	set("cpucritical", func() { cfg.Thresholds.CPU.Critical = f.cpuCritical })
	set("ignore-vm", func() { cfg.Check.IgnoreVM = append(cfg.Check.IgnoreVM, f.ignoreVM...) })

	set("timeout", func() { cfg.Host.TimeoutMS = int(f.timeout.Milliseconds()) })
	set("command-timeout", func() { cfg.Host.CommandTimeoutMS = int(f.commandTimeout.Milliseconds()) })
	set("units", func() { cfg.Check.Units = f.units })
	set("connection-failure-state", func() { cfg.Check.ConnectionFailureState = f.connectionFailure })
	set("no-precheck", func() { cfg.Check.Precheck = !f.noPrecheck })
	set("format", func() { cfg.Output.Format = f.format })
	set("log-level", func() { cfg.Logging.Level = f.logLevel })
	set("log-format", func() { cfg.Logging.Format = f.logFormat })
}

func (a *app) runCheck(cmd *cobra.Command, f *checkFlags) error {
	if err := globals.LoadDotEnv(f.envFile); err != nil {
		return fmt.Errorf("%w: %v", globals.ErrConfiguration, err)
	}
	cfg, err := globals.Load(f.configPath)
	if err != nil {
		return err
	}
	f.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := globals.InitLogger(cfg.Logging, a.stderr)

	exec, err := newExecutor(cfg, logger)
	if err != nil {
		return err
	}
	defer exec.Close()

	runner := &probe.Runner{
		Exec: exec,
		Policy: evaluate.Policy{
			Memory:   cfg.Thresholds.Memory,
			CPU:      cfg.Thresholds.CPU,
			IgnoreVM: cfg.Check.IgnoreVM,
			Scale:    metrics.ScalerFor(cfg.Check.Units),
		},
		Host:              cfg.Host.Hostname,
		Transport:         cfg.Host.Transport,
		ConnectionFailure: cfg.Check.ConnectionFailureSeverity(),
		CommandTimeout:    cfg.Host.CommandTimeout(),
		Logger:            logger,
	}
	if cfg.Check.Precheck {
		runner.Precheck = func(ctx context.Context) error {
			return reachable(ctx, cfg.Host.Hostname, cfg.Port(), cfg.Host.Timeout())
		}
	}

	rs, err := runner.Run(cmd.Context())
	if err != nil {
		logger.Debug("check run aborted", "error", err)
	}

	a.exitCode = a.render(rs, cfg.Output.Format)
	return nil
}

// render writes the result set in the configured format and returns the exit code
func (a *app) render(rs model.ResultSet, format string) int {
	if format == "nagios" {
		p := nagios.NewPlugin()
		p.SetOutputTarget(a.stdout)
		p.SkipOSExit()
		report.ApplyToPlugin(p, rs)
		p.ReturnCheckResults()
		return p.ExitStatusCode
	}

	if err := report.Write(a.stdout, rs); err != nil {
		slog.Error("failed to write report", "error", err)
	}
	return report.ExitCode(rs)
}

// executorFor builds the executor of the configured transport
func executorFor(cfg *globals.Config, logger *slog.Logger) (remote.Executor, error) {
	if cfg.Host.Transport == "winrm" {
		return remote.NewWinRMExecutor(remote.WinRMOptions{
			Host:     cfg.Host.Hostname,
			Port:     cfg.WinRM.Port,
			User:     cfg.WinRM.User,
			Password: cfg.WinRM.Password,
			Domain:   cfg.WinRM.Domain,
			HTTPS:    cfg.WinRM.HTTPS,
			Insecure: cfg.WinRM.Insecure,
			Timeout:  cfg.Host.CommandTimeout(),
		}, logger)
	}

	return remote.NewSSHExecutor(remote.SSHOptions{
		Host:       cfg.Host.Hostname,
		Port:       cfg.SSH.Port,
		User:       cfg.SSH.User,
		KeyFile:    cfg.SSH.KeyFile,
		Passphrase: cfg.SSH.Passphrase,
		UseAgent:   cfg.SSH.UseAgent,
		KnownHosts: cfg.SSH.KnownHosts,
		Timeout:    cfg.Host.Timeout(),
	}, logger)
}
