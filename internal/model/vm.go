package model

import "fmt"

// NoSwitch is the switch name reported for a VM without a network adapter connection
const NoSwitch = "None"

// Size is a byte quantity scaled for display
type Size struct {
	Value float64
	Unit  string
}

// String renders "<value> <unit>", e.g. "2.0 GB"
func (s Size) String() string {
	return FormatFloat(s.Value) + " " + s.Unit
}

// VM is a typed virtual machine record built from one inventory block
type VM struct {
	Name       string
	State      string
	Status     string
	SwitchName string
	Version    string

	CPUUsage       float64
	MemoryAssigned uint64
	MemoryDemand   uint64
	Uptime         string

	// derived
	MemoryPercentUsage float64
	MemoryUsage        Size
	MemorySize         Size
	UptimeFormatted    string
}

// HasSwitch reports whether the VM is attached to a virtual switch
func (vm VM) HasSwitch() bool {
	return vm.SwitchName != NoSwitch
}

// Thresholds is a (warning, critical) percentage pair for one metric
type Thresholds struct {
	Warning  int `yaml:"warning" validate:"gte=0"`
	Critical int `yaml:"critical" validate:"gte=0"`
}

// Validate enforces warning < critical
func (t Thresholds) Validate() error {
	if t.Warning >= t.Critical {
		return fmt.Errorf("warning threshold (%d) must be lower than critical threshold (%d)", t.Warning, t.Critical)
	}
	return nil
}
