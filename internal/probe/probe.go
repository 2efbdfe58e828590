// Package probe runs the Hyper-V checks against one host and collects their
// verdicts.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nmslite/check-hyperv/internal/evaluate"
	"github.com/nmslite/check-hyperv/internal/model"
	"github.com/nmslite/check-hyperv/internal/remote"
)

// Check pairs a remote command with the evaluation of its output
type Check struct {
	Name     string
	Command  string
	Evaluate func(output string, p evaluate.Policy) model.ResultSet
}

// Checks run in this order on every invocation
var Checks = []Check{
	{
		Name:    "service",
		Command: ServiceCommand,
		Evaluate: func(out string, _ evaluate.Policy) model.ResultSet {
			return model.ResultSet{}.Add(evaluate.Service(out))
		},
	},
	{
		Name:    "feature",
		Command: FeatureCommand,
		Evaluate: func(out string, _ evaluate.Policy) model.ResultSet {
			return model.ResultSet{}.Add(evaluate.Feature(out))
		},
	},
	{
		Name:     "inventory",
		Command:  InventoryCommand,
		Evaluate: evaluate.Inventory,
	},
}

// Runner executes Checks sequentially over one executor
type Runner struct {
	Exec   remote.Executor
	Policy evaluate.Policy

	// Host is the name shown in the connection failure message
	Host string
	// Transport names the connection in the failure message ("ssh", "winrm")
	Transport string
	// ConnectionFailure is the severity reported when the host cannot be
	// reached. OK is never reported for a failure, it falls back to WARNING.
	ConnectionFailure model.Severity
	// CommandTimeout bounds each remote command, zero means no extra bound
	CommandTimeout time.Duration
	// Precheck, when set, runs before the first command
	Precheck func(ctx context.Context) error

	Logger *slog.Logger
}

// Run executes every check and returns their verdicts in evaluation order.
// When the host cannot be reached the run stops: the result set then holds
// the single connection failure verdict and the error is returned as well.
func (r *Runner) Run(ctx context.Context) (model.ResultSet, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "probe", "run_id", uuid.NewString(), "target", r.Exec.Target())
	logger.Info("starting check run", "checks", len(Checks))
	start := time.Now()

	if r.Precheck != nil {
		if err := r.Precheck(ctx); err != nil {
			logger.Warn("host unreachable", "error", err)
			return r.connectionFailure(Checks[0].Command), err
		}
	}

	var rs model.ResultSet
	for _, c := range Checks {
		out, err := r.run(ctx, c.Command)
		if err != nil {
			logger.Warn("remote command failed", "check", c.Name, "error", err)
			return r.connectionFailure(c.Command), err
		}

		verdicts := c.Evaluate(out, r.Policy)
		logger.Debug("check evaluated", "check", c.Name, "verdicts", verdicts.Len(), "output_bytes", len(out))
		rs = rs.Merge(verdicts)
	}

	logger.Info("check run finished", "verdicts", rs.Len(), "duration", time.Since(start))
	return rs, nil
}

func (r *Runner) run(ctx context.Context, command string) (string, error) {
	if r.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.CommandTimeout)
		defer cancel()
	}
	return r.Exec.Run(ctx, command)
}

func (r *Runner) connectionFailure(command string) model.ResultSet {
	sev := r.ConnectionFailure
	if sev == model.OK {
		sev = model.Warning
	}
	return model.ResultSet{}.Add(ConnectionFailure(r.host(), command, r.transport(), sev))
}

func (r *Runner) host() string {
	if r.Host != "" {
		return r.Host
	}
	return r.Exec.Target()
}

func (r *Runner) transport() string {
	if r.Transport != "" {
		return r.Transport
	}
	return "ssh"
}

// ConnectionFailure is the verdict reported when a command could not be run
func ConnectionFailure(host, command, transport string, sev model.Severity) model.Verdict {
	return model.NewVerdict(sev,
		fmt.Sprintf("Cannot run remote command (%s) on %s, please check %s connection!", command, host, transport))
}
