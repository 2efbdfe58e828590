// Package evaluate turns parsed entities into verdicts.
package evaluate

import (
	"slices"

	"github.com/nmslite/check-hyperv/internal/metrics"
	"github.com/nmslite/check-hyperv/internal/model"
)

// OperatingNormally is the Hyper-V health status of a healthy VM
const OperatingNormally = "Operating normally"

// Policy carries the thresholds and exclusions a VM is judged against
type Policy struct {
	Memory   model.Thresholds
	CPU      model.Thresholds
	IgnoreVM []string
	Scale    metrics.Scaler
}

// Ignored reports whether the VM is excluded by name
func (p Policy) Ignored(name string) bool {
	return slices.Contains(p.IgnoreVM, name)
}

// Rule is one step of the VM decision chain
type Rule struct {
	Name      string
	Match     func(vm model.VM, p Policy) bool
	Severity  model.Severity
	Qualifier string
}

// VMRules is evaluated top to bottom; the first matching rule decides the verdict
var VMRules = []Rule{
	{
		Name:      "ignored",
		Match:     func(vm model.VM, p Policy) bool { return p.Ignored(vm.Name) },
		Severity:  model.OK,
		Qualifier: "IGNORED VM: ",
	},
	{
		Name:     "powered off",
		Match:    func(vm model.VM, _ Policy) bool { return vm.State == "Off" },
		Severity: model.Warning,
	},
	{
		Name:     "unhealthy",
		Match:    func(vm model.VM, _ Policy) bool { return vm.Status != OperatingNormally },
		Severity: model.Critical,
	},
	{
		Name:      "memory critical",
		Match:     func(vm model.VM, p Policy) bool { return vm.MemoryPercentUsage >= float64(p.Memory.Critical) },
		Severity:  model.Critical,
		Qualifier: "Memory usage: ",
	},
	{
		Name: "memory warning",
		Match: func(vm model.VM, p Policy) bool {
			return vm.MemoryPercentUsage < float64(p.Memory.Critical) && vm.MemoryPercentUsage >= float64(p.Memory.Warning)
		},
		Severity:  model.Warning,
		Qualifier: "Memory usage: ",
	},
	{
		Name:      "cpu critical",
		Match:     func(vm model.VM, p Policy) bool { return vm.CPUUsage >= float64(p.CPU.Critical) },
		Severity:  model.Critical,
		Qualifier: "CPU usage: ",
	},
	{
		Name: "cpu warning",
		Match: func(vm model.VM, p Policy) bool {
			return vm.CPUUsage < float64(p.CPU.Critical) && vm.CPUUsage >= float64(p.CPU.Warning)
		},
		Severity:  model.Warning,
		Qualifier: "CPU usage: ",
	},
	{
		Name:      "no vswitch",
		Match:     func(vm model.VM, _ Policy) bool { return !vm.HasSwitch() },
		Severity:  model.Critical,
		Qualifier: "No vSwitch connection: ",
	},
	{
		Name:     "healthy",
		Match:    func(model.VM, Policy) bool { return true },
		Severity: model.OK,
	},
}

// FirstMatch returns the rule that decides the verdict for vm
func FirstMatch(rules []Rule, vm model.VM, p Policy) (Rule, bool) {
	for _, r := range rules {
		if r.Match(vm, p) {
			return r, true
		}
	}
	return Rule{}, false
}
