package blocks

import (
	"errors"
	"strings"
	"testing"
)

const serviceOutput = `

Name        : vmms
Displayname : Hyper-V Virtual Machine Management
StartMode   : Auto
State       : Running
Startname   : LocalSystem
Status      : OK

`

const threeVMs = `
Name           : dc01
State          : Running
CPUUsage       : 3
MemoryAssigned : 4294967296
MemoryDemand   : 2147483648
Uptime         : 12.04:33:10.5210000
Status         : Operating normally
Version        : 9.0


SwitchName : External

Name           : web01
State          : Off
CPUUsage       : 0
MemoryAssigned : 0
MemoryDemand   : 0
Uptime         : 00:00:00
Status         : Operating normally
Version        : 9.0

SwitchName :

Name           : sql01
State          : Running
CPUUsage       : 71
MemoryAssigned : 17179869184
MemoryDemand   : 16106127360
Uptime         : 1.00:00:59.6000000
Status         : Operating normally
Version        : 10.0

SwitchName : Internal
SwitchName : External
`

func TestParseSingle(t *testing.T) {
	block, err := ParseSingle(serviceOutput, WithRequired("Name", "State"))
	if err != nil {
		t.Fatalf("ParseSingle() error = %v", err)
	}

	tests := []struct {
		field string
		want  string
	}{
		{"Name", "vmms"},
		{"Displayname", "Hyper-V Virtual Machine Management"},
		{"State", "Running"},
		{"Status", "OK"},
	}
	for _, tt := range tests {
		if got := block.Value(tt.field); got != tt.want {
			t.Errorf("Value(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
	if block.Len() != 6 {
		t.Errorf("Len() = %d, want 6", block.Len())
	}
}

func TestParseSingle_MissingRequiredField(t *testing.T) {
	_, err := ParseSingle("Name : vmms\nStatus : OK\n", WithRequired("Name", "State"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("errors.Is(err, ErrMalformedRecord) = false for %v", err)
	}
	var mre *MalformedRecordError
	if !errors.As(err, &mre) || mre.Field != "State" {
		t.Errorf("expected MalformedRecordError for State, got %v", err)
	}
}

func TestParseSingle_FirstSeparatorOnly(t *testing.T) {
	block, err := ParseSingle("Description : Hyper-V: the hypervisor\nRestartNeeded:False")
	if err != nil {
		t.Fatalf("ParseSingle() error = %v", err)
	}
	if got := block.Value("Description"); got != "Hyper-V: the hypervisor" {
		t.Errorf("Description = %q", got)
	}
	if got := block.Value("RestartNeeded"); got != "False" {
		t.Errorf("RestartNeeded = %q", got)
	}
}

func TestParseSingle_WithFields(t *testing.T) {
	text := "Path :\nOnline : True\nFeatureName : Microsoft-Hyper-V\nDisplayName : Hyper-V\nState : Enabled\nwrapped continuation line\n"
	block, err := ParseSingle(text, WithFields("FeatureName", "State"), WithRequired("FeatureName", "State"))
	if err != nil {
		t.Fatalf("ParseSingle() error = %v", err)
	}
	keys := block.Keys()
	if strings.Join(keys, ",") != "FeatureName,State" {
		t.Errorf("Keys() = %v, want [FeatureName State]", keys)
	}
}

func TestParseSingle_CustomSeparator(t *testing.T) {
	block, err := ParseSingle("State=Running\nName=vmms", WithSeparator("="))
	if err != nil {
		t.Fatalf("ParseSingle() error = %v", err)
	}
	if block.Value("State") != "Running" {
		t.Errorf("State = %q, want Running", block.Value("State"))
	}
}

func TestParseSingle_CRLF(t *testing.T) {
	block, err := ParseSingle("Name : vmms\r\nState : Stopped\r\n", WithRequired("State"))
	if err != nil {
		t.Fatalf("ParseSingle() error = %v", err)
	}
	if block.Value("State") != "Stopped" {
		t.Errorf("State = %q, want Stopped", block.Value("State"))
	}
}

func TestParseMulti_ThreeBlocks(t *testing.T) {
	records, err := ParseMulti(threeVMs, "Name")
	if err != nil {
		t.Fatalf("ParseMulti() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("ParseMulti() returned %d blocks, want 3", len(records))
	}

	tests := []struct {
		name       string
		fieldCount int
		switchName string
		uptime     string
	}{
		{"dc01", 9, "External", "12.04:33:10.5210000"},
		{"web01", 9, "", "00:00:00"},
		{"sql01", 9, "External", "1.00:00:59.6000000"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := records[i]
			if got := r.Value("Name"); got != tt.name {
				t.Errorf("Name = %q, want %q", got, tt.name)
			}
			if r.Len() != tt.fieldCount {
				t.Errorf("Len() = %d, want %d (keys %v)", r.Len(), tt.fieldCount, r.Keys())
			}
			sw, ok := r.Get("SwitchName")
			if !ok {
				t.Fatalf("SwitchName missing from %s", tt.name)
			}
			if sw != tt.switchName {
				t.Errorf("SwitchName = %q, want %q", sw, tt.switchName)
			}
			if got := r.Value("Uptime"); got != tt.uptime {
				t.Errorf("Uptime = %q, want %q", got, tt.uptime)
			}
		})
	}

	// web01 is Off; none of dc01's values may leak into it
	if records[1].Value("State") != "Off" || records[1].Value("MemoryAssigned") != "0" {
		t.Errorf("cross-contamination in second block: %v", records[1].Keys())
	}
}

func TestParseMulti_SwitchNameIsNotASentinel(t *testing.T) {
	text := "SwitchName : External\nName : vm1\nState : Running\nSwitchName : Internal\n"
	records, err := ParseMulti(text, "Name")
	if err != nil {
		t.Fatalf("ParseMulti() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d blocks, want 1", len(records))
	}
	if records[0].Value("SwitchName") != "Internal" {
		t.Errorf("SwitchName = %q, want Internal", records[0].Value("SwitchName"))
	}
}

func TestParseMulti_EmptyInput(t *testing.T) {
	records, err := ParseMulti("\n\n  \n", "Name")
	if err != nil {
		t.Fatalf("ParseMulti() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d blocks, want 0", len(records))
	}
}

func TestParseMulti_EmptySpan(t *testing.T) {
	_, err := ParseMulti("Name : vm1\nState : Off\n", "Name", WithFields("Version"))
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestFieldBlock_SetKeepsFirstPosition(t *testing.T) {
	b := NewFieldBlock()
	b.Set("A", "1")
	b.Set("B", "2")
	b.Set("A", "3")

	if got := strings.Join(b.Keys(), ","); got != "A,B" {
		t.Errorf("Keys() = %q, want A,B", got)
	}
	if b.Value("A") != "3" {
		t.Errorf("Value(A) = %q, want 3", b.Value("A"))
	}
}

func TestMalformedRecordError_Message(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Missing("State"), `malformed record: field "State" is missing`},
		{Invalid("CPUUsage", "abc", nil), `malformed record: field "CPUUsage" has invalid value "abc"`},
		{&MalformedRecordError{Reason: "empty output"}, "malformed record: empty output"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
