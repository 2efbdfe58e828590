// Package metrics derives display values (memory percentage, scaled sizes,
// uptime) from parsed VM inventory blocks.
package metrics

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nmslite/check-hyperv/internal/blocks"
	"github.com/nmslite/check-hyperv/internal/model"
)

// Inventory field names as printed by Get-VM
const (
	FieldName           = "Name"
	FieldState          = "State"
	FieldCPUUsage       = "CPUUsage"
	FieldMemoryAssigned = "MemoryAssigned"
	FieldMemoryDemand   = "MemoryDemand"
	FieldUptime         = "Uptime"
	FieldStatus         = "Status"
	FieldSwitchName     = "SwitchName"
	FieldVersion        = "Version"
)

// RequiredVMFields must be present in every inventory block. SwitchName is
// absent for a VM without network adapters and normalizes to model.NoSwitch.
var RequiredVMFields = []string{
	FieldName,
	FieldState,
	FieldCPUUsage,
	FieldMemoryAssigned,
	FieldMemoryDemand,
	FieldUptime,
	FieldStatus,
}

// Scaler converts a byte count into a display size
type Scaler func(bytes uint64) model.Size

// round2 rounds half away from zero to two decimals
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MemoryPercent returns demand as a percentage of assigned memory, rounded to
// two decimals. A VM with no assigned memory reports 0.
func MemoryPercent(demand, assigned uint64) float64 {
	if assigned == 0 {
		return 0
	}
	return round2(float64(demand) / float64(assigned) * 100)
}

// FormatSize picks the unit from the number of decimal digits of bytes:
// fewer than 10 digits is MB, 10 to 12 is GB, 13 or more is TB.
// The boundaries are not powers of 1024; dashboards depend on them as they are.
func FormatSize(bytes uint64) model.Size {
	digits := len(strconv.FormatUint(bytes, 10))
	switch {
	case digits >= 13:
		return model.Size{Value: round2(float64(bytes) / math.Pow(1024, 4)), Unit: "TB"}
	case digits >= 10:
		return model.Size{Value: round2(float64(bytes) / math.Pow(1024, 3)), Unit: "GB"}
	default:
		return model.Size{Value: round2(float64(bytes) / math.Pow(1024, 2)), Unit: "MB"}
	}
}

// FormatSizeBinary picks the unit from exact powers of 1024
func FormatSizeBinary(bytes uint64) model.Size {
	switch {
	case bytes >= 1<<40:
		return model.Size{Value: round2(float64(bytes) / (1 << 40)), Unit: "TB"}
	case bytes >= 1<<30:
		return model.Size{Value: round2(float64(bytes) / (1 << 30)), Unit: "GB"}
	default:
		return model.Size{Value: round2(float64(bytes) / (1 << 20)), Unit: "MB"}
	}
}

// ScalerFor returns the scaler for a configured unit mode ("legacy" or "binary")
func ScalerFor(mode string) Scaler {
	if mode == "binary" {
		return FormatSizeBinary
	}
	return FormatSize
}

// FormatUptime turns "D.HH:MM:SS.fffffff" into "D.HH:MM:SS".
// The first two components are kept verbatim; seconds are rounded to the
// nearest integer, capped at 59 and zero-padded.
func FormatUptime(raw string) (string, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 3 {
		return "", blocks.Invalid(FieldUptime, raw, fmt.Errorf("expected HH:MM:SS"))
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return "", blocks.Invalid(FieldUptime, raw, err)
	}
	secs := min(int64(math.Round(seconds)), 59)
	return fmt.Sprintf("%s:%s:%02d", parts[0], parts[1], secs), nil
}

// NormalizeSwitch maps an empty switch name to model.NoSwitch
func NormalizeSwitch(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.NoSwitch
	}
	return name
}

// parseBytes accepts integer byte counts; Hyper-V never prints fractions here
func parseBytes(block blocks.FieldBlock, field string) (uint64, error) {
	raw := block.Value(field)
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, blocks.Invalid(field, raw, err)
	}
	return v, nil
}

// DeriveVM validates one inventory block and computes every derived field.
// Errors are *blocks.MalformedRecordError naming the offending field.
func DeriveVM(block blocks.FieldBlock, scale Scaler) (model.VM, error) {
	if scale == nil {
		scale = FormatSize
	}
	if err := block.Require(RequiredVMFields...); err != nil {
		return model.VM{}, err
	}

	rawCPU := block.Value(FieldCPUUsage)
	cpu, err := strconv.ParseFloat(strings.TrimSpace(rawCPU), 64)
	if err != nil {
		return model.VM{}, blocks.Invalid(FieldCPUUsage, rawCPU, err)
	}

	assigned, err := parseBytes(block, FieldMemoryAssigned)
	if err != nil {
		return model.VM{}, err
	}
	demand, err := parseBytes(block, FieldMemoryDemand)
	if err != nil {
		return model.VM{}, err
	}

	uptime, err := FormatUptime(block.Value(FieldUptime))
	if err != nil {
		return model.VM{}, err
	}

	return model.VM{
		Name:               block.Value(FieldName),
		State:              block.Value(FieldState),
		Status:             block.Value(FieldStatus),
		SwitchName:         NormalizeSwitch(block.Value(FieldSwitchName)),
		Version:            block.Value(FieldVersion),
		CPUUsage:           cpu,
		MemoryAssigned:     assigned,
		MemoryDemand:       demand,
		Uptime:             block.Value(FieldUptime),
		MemoryPercentUsage: MemoryPercent(demand, assigned),
		MemoryUsage:        scale(demand),
		MemorySize:         scale(assigned),
		UptimeFormatted:    uptime,
	}, nil
}
