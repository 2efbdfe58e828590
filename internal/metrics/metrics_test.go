package metrics

import (
	"errors"
	"testing"

	"github.com/nmslite/check-hyperv/internal/blocks"
	"github.com/nmslite/check-hyperv/internal/model"
)

func TestMemoryPercent(t *testing.T) {
	tests := []struct {
		name     string
		demand   uint64
		assigned uint64
		want     float64
	}{
		{"half", 500, 1000, 50},
		{"zero assigned", 500, 0, 0},
		{"zero assigned zero demand", 0, 0, 0},
		{"rounded to two decimals", 1, 3, 33.33},
		{"demand above assigned", 3000, 2000, 150},
		{"real VM", 16106127360, 17179869184, 93.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MemoryPercent(tt.demand, tt.assigned); got != tt.want {
				t.Errorf("MemoryPercent(%d, %d) = %v, want %v", tt.demand, tt.assigned, got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes uint64
		want  model.Size
	}{
		{"zero", 0, model.Size{Value: 0, Unit: "MB"}},
		{"one MiB", 1048576, model.Size{Value: 1, Unit: "MB"}},
		{"9 digits stays MB", 999999999, model.Size{Value: 953.67, Unit: "MB"}},
		{"10 digits switches to GB", 1000000000, model.Size{Value: 0.93, Unit: "GB"}},
		{"4 GiB", 4294967296, model.Size{Value: 4, Unit: "GB"}},
		{"12 digits stays GB", 999999999999, model.Size{Value: 931.32, Unit: "GB"}},
		{"13 digits switches to TB", 1000000000000, model.Size{Value: 0.91, Unit: "TB"}},
		{"2 TiB", 2199023255552, model.Size{Value: 2, Unit: "TB"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSize(tt.bytes); got != tt.want {
				t.Errorf("FormatSize(%d) = %+v, want %+v", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatSizeBinary(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  model.Size
	}{
		{999999999, model.Size{Value: 953.67, Unit: "MB"}},
		{1073741823, model.Size{Value: 1024, Unit: "MB"}},
		{1073741824, model.Size{Value: 1, Unit: "GB"}},
		{1000000000000, model.Size{Value: 931.32, Unit: "GB"}},
		{1099511627776, model.Size{Value: 1, Unit: "TB"}},
	}

	for _, tt := range tests {
		if got := FormatSizeBinary(tt.bytes); got != tt.want {
			t.Errorf("FormatSizeBinary(%d) = %+v, want %+v", tt.bytes, got, tt.want)
		}
	}
}

func TestScalerFor(t *testing.T) {
	if got := ScalerFor("binary")(1000000000); got.Unit != "MB" {
		t.Errorf("binary scaler unit = %q, want MB", got.Unit)
	}
	if got := ScalerFor("legacy")(1000000000); got.Unit != "GB" {
		t.Errorf("legacy scaler unit = %q, want GB", got.Unit)
	}
	if got := ScalerFor("")(1000000000); got.Unit != "GB" {
		t.Errorf("default scaler unit = %q, want GB", got.Unit)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"12.04:33:10.5210000", "12.04:33:11", false},
		{"00:00:00", "00:00:00", false},
		{"01:02:03.4", "01:02:03", false},
		{"1.00:00:59.6000000", "1.00:00:59", false},
		{"00:00:59.4", "00:00:59", false},
		{" 02:15:07.0100000 ", "02:15:07", false},
		{"02:15", "", true},
		{"", "", true},
		{"02:15:xx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := FormatUptime(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, blocks.ErrMalformedRecord) {
					t.Errorf("FormatUptime(%q) error = %v, want ErrMalformedRecord", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatUptime(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("FormatUptime(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeSwitch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "None"},
		{"   ", "None"},
		{"External", "External"},
	}
	for _, tt := range tests {
		if got := NormalizeSwitch(tt.in); got != tt.want {
			t.Errorf("NormalizeSwitch(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func vmBlock(overrides map[string]string, drop ...string) blocks.FieldBlock {
	fields := [][2]string{
		{FieldName, "dc01"},
		{FieldState, "Running"},
		{FieldCPUUsage, "3"},
		{FieldMemoryAssigned, "4294967296"},
		{FieldMemoryDemand, "2147483648"},
		{FieldUptime, "12.04:33:10.5210000"},
		{FieldStatus, "Operating normally"},
		{FieldVersion, "9.0"},
		{FieldSwitchName, "External"},
	}
	skip := make(map[string]bool)
	for _, d := range drop {
		skip[d] = true
	}

	b := blocks.NewFieldBlock()
	for _, f := range fields {
		if skip[f[0]] {
			continue
		}
		v := f[1]
		if o, ok := overrides[f[0]]; ok {
			v = o
		}
		b.Set(f[0], v)
	}
	return b
}

func TestDeriveVM(t *testing.T) {
	vm, err := DeriveVM(vmBlock(nil), FormatSize)
	if err != nil {
		t.Fatalf("DeriveVM() error = %v", err)
	}

	if vm.Name != "dc01" || vm.State != "Running" || vm.Status != "Operating normally" {
		t.Errorf("unexpected identity fields: %+v", vm)
	}
	if vm.CPUUsage != 3 {
		t.Errorf("CPUUsage = %v, want 3", vm.CPUUsage)
	}
	if vm.MemoryPercentUsage != 50 {
		t.Errorf("MemoryPercentUsage = %v, want 50", vm.MemoryPercentUsage)
	}
	if vm.MemoryUsage.String() != "2.0 GB" {
		t.Errorf("MemoryUsage = %q, want 2.0 GB", vm.MemoryUsage.String())
	}
	if vm.MemorySize.String() != "4.0 GB" {
		t.Errorf("MemorySize = %q, want 4.0 GB", vm.MemorySize.String())
	}
	if vm.UptimeFormatted != "12.04:33:11" {
		t.Errorf("UptimeFormatted = %q, want 12.04:33:11", vm.UptimeFormatted)
	}
	if vm.SwitchName != "External" || !vm.HasSwitch() {
		t.Errorf("SwitchName = %q, HasSwitch = %v", vm.SwitchName, vm.HasSwitch())
	}
}

func TestDeriveVM_AbsentSwitchNormalized(t *testing.T) {
	vm, err := DeriveVM(vmBlock(nil, FieldSwitchName), nil)
	if err != nil {
		t.Fatalf("DeriveVM() error = %v", err)
	}
	if vm.SwitchName != model.NoSwitch || vm.HasSwitch() {
		t.Errorf("SwitchName = %q, want %q", vm.SwitchName, model.NoSwitch)
	}
}

func TestDeriveVM_EmptySwitchNormalized(t *testing.T) {
	vm, err := DeriveVM(vmBlock(map[string]string{FieldSwitchName: ""}), nil)
	if err != nil {
		t.Fatalf("DeriveVM() error = %v", err)
	}
	if vm.SwitchName != model.NoSwitch || vm.HasSwitch() {
		t.Errorf("SwitchName = %q, want %q", vm.SwitchName, model.NoSwitch)
	}
}

func TestDeriveVM_ZeroAssignedMemory(t *testing.T) {
	vm, err := DeriveVM(vmBlock(map[string]string{FieldMemoryAssigned: "0", FieldMemoryDemand: "0"}), nil)
	if err != nil {
		t.Fatalf("DeriveVM() error = %v", err)
	}
	if vm.MemoryPercentUsage != 0 {
		t.Errorf("MemoryPercentUsage = %v, want 0", vm.MemoryPercentUsage)
	}
}

func TestDeriveVM_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		block     blocks.FieldBlock
		wantField string
	}{
		{"missing state", vmBlock(nil, FieldState), FieldState},
		{"missing name", vmBlock(nil, FieldName), FieldName},
		{"cpu not numeric", vmBlock(map[string]string{FieldCPUUsage: "n/a"}), FieldCPUUsage},
		{"negative memory", vmBlock(map[string]string{FieldMemoryAssigned: "-1"}), FieldMemoryAssigned},
		{"demand with fraction", vmBlock(map[string]string{FieldMemoryDemand: "12.5"}), FieldMemoryDemand},
		{"uptime without seconds", vmBlock(map[string]string{FieldUptime: "04:33"}), FieldUptime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveVM(tt.block, FormatSize)
			var mre *blocks.MalformedRecordError
			if !errors.As(err, &mre) {
				t.Fatalf("DeriveVM() error = %v, want MalformedRecordError", err)
			}
			if mre.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", mre.Field, tt.wantField)
			}
		})
	}
}
