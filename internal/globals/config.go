// Package globals holds the check configuration and the process-wide logger
package globals

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nmslite/check-hyperv/internal/model"
)

// EnvPrefix is the prefix of every environment override, e.g. HVCHECK_SSH_KEY
const EnvPrefix = "HVCHECK_"

// Config is the complete check configuration, built from defaults, the YAML
// file, HVCHECK_* environment variables and command-line flags in that order.
type Config struct {
	Host       HostConfig       `yaml:"host"`
	SSH        SSHConfig        `yaml:"ssh"`
	WinRM      WinRMConfig      `yaml:"winrm"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Check      CheckConfig      `yaml:"check"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// HostConfig selects the Hyper-V host, the transport and the time budgets
type HostConfig struct {
	Hostname         string `yaml:"hostname" validate:"required,hostname_rfc1123|ip"`
	Transport        string `yaml:"transport" validate:"oneof=ssh winrm"`
	TimeoutMS        int    `yaml:"timeout_ms" validate:"gte=0"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms" validate:"gte=0"`
}

// SSHConfig holds the SSH credentials and host key verification settings
type SSHConfig struct {
	User       string `yaml:"user"`
	Port       int    `yaml:"port" validate:"gte=1,lte=65535"`
	KeyFile    string `yaml:"key_file"`
	Passphrase string `yaml:"passphrase,omitempty"`
	UseAgent   bool   `yaml:"use_agent"`
	KnownHosts string `yaml:"known_hosts"`
}

// WinRMConfig holds the WinRM endpoint and credentials. The password is only
// read from the file or HVCHECK_WINRM_PASSWORD.
type WinRMConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	Domain   string `yaml:"domain"`
	Port     int    `yaml:"port" validate:"gte=1,lte=65535"`
	HTTPS    bool   `yaml:"https"`
	Insecure bool   `yaml:"insecure"`
}

// ThresholdsConfig holds the VM memory and CPU percentage thresholds
type ThresholdsConfig struct {
	Memory model.Thresholds `yaml:"memory"`
	CPU    model.Thresholds `yaml:"cpu"`
}

// CheckConfig tunes how verdicts are produced
type CheckConfig struct {
	IgnoreVM               []string `yaml:"ignore_vm"`
	Units                  string   `yaml:"units" validate:"oneof=legacy binary"`
	ConnectionFailureState string   `yaml:"connection_failure_state" validate:"oneof=warning unknown"`
	Precheck               bool     `yaml:"precheck"`
}

// OutputConfig selects the report format written to stdout
type OutputConfig struct {
	Format string `yaml:"format" validate:"oneof=lines nagios"`
}

// LoggingConfig controls the stderr logger
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when neither a file nor flags set a value
func Default() *Config {
	return &Config{
		Host: HostConfig{
			Transport:        "ssh",
			TimeoutMS:        30000,
			CommandTimeoutMS: 60000,
		},
		SSH:   SSHConfig{Port: 22},
		WinRM: WinRMConfig{Port: 5985},
		Check: CheckConfig{
			Units:                  "legacy",
			ConnectionFailureState: "warning",
			Precheck:               true,
		},
		Output:  OutputConfig{Format: "lines"},
		Logging: LoggingConfig{Level: "warn", Format: "text"},
	}
}

// Load reads configuration from file on top of the defaults and applies
// environment variable overrides. An empty path skips the file.
// Validate is left to the caller so command-line flags can be applied first.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, &ConfigError{Errors: []ValidationError{{Field: "config", Message: fmt.Sprintf("failed to read config file: %v", err)}}}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Errors: []ValidationError{{Field: "config", Message: fmt.Sprintf("failed to parse config file: %v", err)}}}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDotEnv loads KEY=value files into the environment. Missing files are
// skipped and variables that are already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// applyEnvOverrides checks for environment variables with HVCHECK_ prefix
func applyEnvOverrides(cfg *Config) {
	if v := getenv("HOSTNAME"); v != "" {
		cfg.Host.Hostname = v
	}
	if v := getenv("TRANSPORT"); v != "" {
		cfg.Host.Transport = v
	}

	// SSH overrides
	if v := getenv("SSH_USER"); v != "" {
		cfg.SSH.User = v
	}
	if v := getenv("SSH_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.SSH.Port)
	}
	if v := getenv("SSH_KEY"); v != "" {
		cfg.SSH.KeyFile = v
	}
	if v := getenv("SSH_PASSPHRASE"); v != "" {
		cfg.SSH.Passphrase = v
	}
	if v := getenv("SSH_KNOWN_HOSTS"); v != "" {
		cfg.SSH.KnownHosts = v
	}

	// WinRM overrides
	if v := getenv("WINRM_USER"); v != "" {
		cfg.WinRM.User = v
	}
	if v := getenv("WINRM_PASSWORD"); v != "" {
		cfg.WinRM.Password = v
	}
	if v := getenv("WINRM_DOMAIN"); v != "" {
		cfg.WinRM.Domain = v
	}
	if v := getenv("WINRM_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.WinRM.Port)
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

func getenv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

// Timeout bounds connecting and authenticating
func (h *HostConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutMS) * time.Millisecond
}

// CommandTimeout bounds a single remote command
func (h *HostConfig) CommandTimeout() time.Duration {
	return time.Duration(h.CommandTimeoutMS) * time.Millisecond
}

// Port returns the port of the selected transport
func (c *Config) Port() int {
	if c.Host.Transport == "winrm" {
		return c.WinRM.Port
	}
	return c.SSH.Port
}

// ConnectionFailureSeverity maps connection_failure_state onto a severity
func (c *CheckConfig) ConnectionFailureSeverity() model.Severity {
	if sev, ok := model.ParseSeverity(c.ConnectionFailureState); ok {
		return sev
	}
	return model.Warning
}

// DumpExampleConfig writes an example configuration to the provided writer
func DumpExampleConfig(w io.Writer) error {
	example := Default()
	example.Host.Hostname = "hyperv01.example.com"
	example.SSH.User = "monitoring"
	example.SSH.KeyFile = "/etc/icinga2/ssh/id_ed25519"
	example.SSH.KnownHosts = "/etc/icinga2/ssh/known_hosts"
	example.WinRM.User = "monitoring"
	example.WinRM.Domain = "EXAMPLE"
	example.Thresholds = ThresholdsConfig{
		Memory: model.Thresholds{Warning: 80, Critical: 90},
		CPU:    model.Thresholds{Warning: 60, Critical: 80},
	}
	example.Check.IgnoreVM = []string{"template-2019", "lab-scratch"}

	var node yaml.Node
	if err := node.Encode(example); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	header := `# =============================================================================
# check_hyperv Example Configuration
# =============================================================================
# Command-line flags take precedence over values in this file.
#
# Environment variable overrides follow the pattern: HVCHECK_<SECTION>_<KEY>
# Example: HVCHECK_SSH_KEY, HVCHECK_WINRM_PASSWORD
# A .env file in the working directory is loaded before the overrides.
# =============================================================================

`
	if _, err := fmt.Fprint(w, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	footer := `
# =============================================================================
# Notes:
# =============================================================================
#
# 1. Thresholds are percentages; warning must be lower than critical.
#
# 2. units: "legacy" scales byte counts by digit count (MB/GB/TB),
#    "binary" uses 1024-based MiB/GiB/TiB.
#
# 3. connection_failure_state picks the severity reported when the host
#    cannot be reached: "warning" (default) or "unknown".
#
# 4. WinRM uses NTLM when a domain is set, Basic authentication otherwise.
# =============================================================================
`
	if _, err := fmt.Fprint(w, footer); err != nil {
		return fmt.Errorf("failed to write footer: %w", err)
	}

	return nil
}
