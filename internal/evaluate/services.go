package evaluate

import (
	"fmt"
	"strings"

	"github.com/nmslite/check-hyperv/internal/blocks"
	"github.com/nmslite/check-hyperv/internal/model"
)

// Service checks the Hyper-V management service output (Get-CimInstance win32_service)
func Service(text string) model.Verdict {
	block, err := blocks.ParseSingle(text, blocks.WithRequired("State"))
	if err != nil {
		return Malformed("Windows service", err)
	}

	name := block.Value("Displayname")
	if name == "" {
		name = block.Value("Name")
	}
	state := block.Value("State")

	if state != "Running" {
		return model.NewVerdict(model.Critical, fmt.Sprintf("Windows %s service state is %s!", name, state))
	}
	return model.NewVerdict(model.OK, fmt.Sprintf("Windows %s service state is %s.", name, state))
}

// Feature checks the Microsoft-Hyper-V optional feature output
// (Get-WindowsOptionalFeature). Decimal commas are normalized first.
func Feature(text string) model.Verdict {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")

	block, err := blocks.ParseSingle(text,
		blocks.WithFields("FeatureName", "State"),
		blocks.WithRequired("FeatureName", "State"),
	)
	if err != nil {
		return Malformed("Windows feature", err)
	}

	name := block.Value("FeatureName")
	state := block.Value("State")

	if state != "Enabled" {
		return model.NewVerdict(model.Critical, fmt.Sprintf("%s feature state is %s!", name, state))
	}
	return model.NewVerdict(model.OK, fmt.Sprintf("%s feature state is %s.", name, state))
}
