package config

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// Credentials is a user/password pair
type Credentials struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// CredentialSet holds generic credentials plus per-mode overrides keyed by
// mode name ("primary", "maintenance", "auxiliary")
type CredentialSet struct {
	Credentials `yaml:",inline"`
	Modes       map[string]Credentials `yaml:"modes,omitempty"`
}

// TargetSpec describes one launch target as written in targets.yaml
type TargetSpec struct {
	Name        string        `yaml:"name"`
	Process     string        `yaml:"process,omitempty"`    // Executable name used for discovery
	Icon        string        `yaml:"icon,omitempty"`       // Label prefix
	Mode        string        `yaml:"mode,omitempty"`       // primary, maintenance, auxiliary
	Client      string        `yaml:"client,omitempty"`     // thin or thick
	Version     string        `yaml:"version,omitempty"`    // Platform version, e.g. 8.3.24.1467
	Arch        string        `yaml:"arch,omitempty"`       // x86_64 or x86
	Executable  string        `yaml:"executable,omitempty"` // Override path template
	Connection  string        `yaml:"connection,omitempty"` // Srvr="..";Ref=".."; or File="..";
	Credentials CredentialSet `yaml:"credentials,omitempty"`
	Args        []string      `yaml:"args,omitempty"`
	Main        bool          `yaml:"main,omitempty"` // Listed in the main group
}

// Targets is the content of targets.yaml
type Targets struct {
	// Platform information bases
	Bases []TargetSpec `yaml:"bases"`

	// Tracked desktop tools, shown as running instances or placeholders
	Tools []TargetSpec `yaml:"tools"`
}

var validModes = map[string]bool{"": true, "primary": true, "maintenance": true, "auxiliary": true}

// LoadTargets reads and validates a targets file
func LoadTargets(path string) (*Targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read targets file %s", path)
	}
	return ParseTargets(data)
}

// ParseTargets decodes and validates targets.yaml content
func ParseTargets(data []byte) (*Targets, error) {
	var t Targets
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "failed to parse targets")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks names are unique and enumerations are known
func (t *Targets) Validate() error {
	seen := make(map[string]bool)
	check := func(kind string, spec TargetSpec) error {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return errors.Errorf("%s entry without a name", kind)
		}
		if seen[name] {
			return errors.Errorf("duplicate target name %q", name)
		}
		seen[name] = true

		if !validModes[spec.Mode] {
			return errors.Errorf("target %q: unknown mode %q", name, spec.Mode)
		}
		for mode := range spec.Credentials.Modes {
			if mode == "" || !validModes[mode] {
				return errors.Errorf("target %q: credentials for unknown mode %q", name, mode)
			}
		}
		if spec.Client != "" && spec.Client != "thin" && spec.Client != "thick" {
			return errors.Errorf("target %q: client must be thin or thick, got %q", name, spec.Client)
		}
		return nil
	}

	for _, b := range t.Bases {
		if err := check("base", b); err != nil {
			return err
		}
	}
	for _, tool := range t.Tools {
		if err := check("tool", tool); err != nil {
			return err
		}
		if tool.Process == "" {
			return errors.Errorf("tool %q needs a process name", tool.Name)
		}
		if tool.Executable == "" {
			return errors.Errorf("tool %q needs an executable", tool.Name)
		}
	}
	return nil
}

// Find returns the base or tool named name
func (t *Targets) Find(name string) (TargetSpec, bool) {
	for _, list := range [][]TargetSpec{t.Bases, t.Tools} {
		for _, spec := range list {
			if spec.Name == name {
				return spec, true
			}
		}
	}
	return TargetSpec{}, false
}
