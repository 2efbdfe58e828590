package evaluate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nmslite/check-hyperv/internal/blocks"
	"github.com/nmslite/check-hyperv/internal/metrics"
	"github.com/nmslite/check-hyperv/internal/model"
)

// VM judges one derived VM record against the policy
func VM(vm model.VM, p Policy) model.Verdict {
	rule, ok := FirstMatch(VMRules, vm, p)
	if !ok {
		return model.NewVerdict(model.Unknown, fmt.Sprintf("no rule matched VM '%s'", vm.Name))
	}
	return model.NewVerdict(rule.Severity, rule.Qualifier+Details(vm), PerfData(vm, p)...)
}

// Details is the context line shared by every VM verdict
func Details(vm model.VM) string {
	return collapseSpaces(fmt.Sprintf(
		"'%s' VM state is %s, CPU usage: %s%%, memory usage: %s%% (%s / %s), switch name: %s, VM health: %s, uptime: %s",
		vm.Name,
		vm.State,
		model.FormatFloat(vm.CPUUsage),
		model.FormatFloat(vm.MemoryPercentUsage),
		vm.MemoryUsage,
		vm.MemorySize,
		vm.SwitchName,
		vm.Status,
		vm.UptimeFormatted,
	))
}

// PerfData returns the memory and CPU performance data of a VM
func PerfData(vm model.VM, p Policy) []model.PerfDatum {
	return []model.PerfDatum{
		{
			Label: vm.Name + " memory",
			Value: vm.MemoryPercentUsage,
			UOM:   "%",
			Warn:  strconv.Itoa(p.Memory.Warning),
			Crit:  strconv.Itoa(p.Memory.Critical),
			Min:   "0",
			Max:   "100",
		},
		{
			Label: vm.Name + " cpu",
			Value: vm.CPUUsage,
			UOM:   "%",
			Warn:  strconv.Itoa(p.CPU.Warning),
			Crit:  strconv.Itoa(p.CPU.Critical),
			Min:   "0",
			Max:   "100",
		},
	}
}

// Inventory parses the VM inventory text and evaluates every VM.
// A malformed VM becomes an UNKNOWN verdict; the others are still judged.
func Inventory(text string, p Policy) model.ResultSet {
	var rs model.ResultSet

	records, err := blocks.ParseMulti(text, metrics.FieldName)
	if err != nil {
		return rs.Add(Malformed("VM inventory", err))
	}

	for _, block := range records {
		vm, err := metrics.DeriveVM(block, p.Scale)
		if err != nil {
			name := block.Value(metrics.FieldName)
			if p.Ignored(name) {
				rs = rs.Add(model.NewVerdict(model.OK, fmt.Sprintf("IGNORED VM: '%s' VM could not be evaluated: %v", name, err)))
				continue
			}
			rs = rs.Add(Malformed(fmt.Sprintf("'%s' VM", name), err))
			continue
		}
		rs = rs.Add(VM(vm, p))
	}
	return rs
}

// Malformed builds the UNKNOWN verdict for an entity whose text could not be interpreted
func Malformed(entity string, err error) model.Verdict {
	return model.NewVerdict(model.Unknown, fmt.Sprintf("%s could not be evaluated: %v", entity, err))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
