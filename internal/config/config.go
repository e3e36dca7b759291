package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/firefly-engineering/nspctl/internal/errors"
)

// machineNameRegex validates machine names.
// Names follow systemd's machine name rules: a letter or digit, then letters,
// digits, dots, underscores or hyphens, at most 64 characters.
var machineNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// envNameRegex validates environment variable names in [env] allow.
var envNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateMachineName checks if a machine name is valid.
// Valid names:
//   - Start with a letter or digit
//   - Contain only letters, digits, dots, underscores, or hyphens
//   - Are between 1 and 64 characters long
//   - Are not "." or ".." and contain no path separators
func ValidateMachineName(name string) error {
	if name == "" {
		return errors.ValidationError("machine name cannot be empty")
	}

	if !machineNameRegex.MatchString(name) || strings.Contains(name, "..") {
		return errors.ValidationError(fmt.Sprintf("invalid machine name %q: must start with a letter or digit, contain only letters, digits, dots, underscores, or hyphens, and be at most 64 characters", name))
	}

	return nil
}

const (
	DefaultConfigPath    = "/etc/nspctl/config.toml"
	DefaultSafePath      = "/bin:/usr/bin:/sbin:/usr/sbin:/opt/bin:/usr/local/bin:/usr/local/sbin"
	DefaultProcRoot      = "/proc"
	DefaultMachinesDir   = "/var/lib/machines"
	DefaultStateDir      = "/var/lib/nspctl"
	DefaultSystemdMarker = "/run/systemd/system"
	DefaultShell         = "/bin/sh"
	DefaultMachinectl    = "machinectl"
	DefaultEnvPolicy     = "none"
)

// Config is the nspctl configuration, read from config.toml.
type Config struct {
	SafePath      string    `toml:"safe_path"`
	ProcRoot      string    `toml:"proc_root"`
	MachinesDir   string    `toml:"machines_dir"`
	StateDir      string    `toml:"state_dir"`
	SystemdMarker string    `toml:"systemd_marker"`
	Shell         string    `toml:"shell"`
	ShellArgs     []string  `toml:"shell_args"`
	Machinectl    string    `toml:"machinectl"`
	Env           EnvConfig `toml:"env"`
}

// EnvConfig is the default environment policy for commands run in containers.
type EnvConfig struct {
	Policy string   `toml:"policy"`
	Allow  []string `toml:"allow"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SafePath:      DefaultSafePath,
		ProcRoot:      DefaultProcRoot,
		MachinesDir:   DefaultMachinesDir,
		StateDir:      DefaultStateDir,
		SystemdMarker: DefaultSystemdMarker,
		Shell:         DefaultShell,
		ShellArgs:     []string{"-l"},
		Machinectl:    DefaultMachinectl,
		Env: EnvConfig{
			Policy: DefaultEnvPolicy,
		},
	}
}

// Load reads the configuration at path on top of the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads the configuration at path on top of the defaults. Unknown
// keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.ConfigError(fmt.Sprintf("config file %s not found", path), err)
		}
		return nil, errors.ConfigError("failed to read config", err)
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid config %s", path), err)
	}
	return cfg, nil
}

// Parse decodes TOML configuration text on top of the defaults and validates
// the result.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the Config is usable.
func (c *Config) Validate() error {
	if c.SafePath == "" {
		return fmt.Errorf("safe_path is required")
	}
	for _, dir := range filepath.SplitList(c.SafePath) {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("safe_path entry %q must be absolute", dir)
		}
	}

	for key, p := range map[string]string{
		"proc_root":      c.ProcRoot,
		"machines_dir":   c.MachinesDir,
		"state_dir":      c.StateDir,
		"systemd_marker": c.SystemdMarker,
		"shell":          c.Shell,
	} {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%s must be an absolute path, got %q", key, p)
		}
	}

	if c.Machinectl == "" {
		return fmt.Errorf("machinectl is required")
	}

	switch c.Env.Policy {
	case "none", "allowlist", "passthrough":
	default:
		return fmt.Errorf("invalid env policy: %s (must be none, allowlist, or passthrough)", c.Env.Policy)
	}

	for _, name := range c.Env.Allow {
		if !envNameRegex.MatchString(name) {
			return fmt.Errorf("invalid environment variable name in env.allow: %q", name)
		}
	}

	return nil
}
