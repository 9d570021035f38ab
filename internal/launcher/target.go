package launcher

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode selects how the platform starts
type Mode int

const (
	ModePrimary Mode = iota
	ModeMaintenance
	ModeAuxiliaryTool
)

// Token is the mode keyword placed first on the command line
func (m Mode) Token() string {
	if m == ModeMaintenance {
		return "DESIGNER"
	}
	return "ENTERPRISE"
}

func (m Mode) String() string {
	switch m {
	case ModePrimary:
		return "primary"
	case ModeMaintenance:
		return "maintenance"
	case ModeAuxiliaryTool:
		return "auxiliary"
	}
	return "unknown"
}

// ParseMode accepts the String form; empty means primary
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary":
		return ModePrimary, nil
	case "maintenance":
		return ModeMaintenance, nil
	case "auxiliary":
		return ModeAuxiliaryTool, nil
	}
	return ModePrimary, errors.Errorf("unknown launch mode %q", s)
}

// Credentials is a user/password pair; empty fields are omitted
type Credentials struct {
	User     string
	Password string
}

// CredentialsProvider supplies credentials per mode with a generic fallback
type CredentialsProvider interface {
	ForMode(m Mode) Credentials
	Generic() Credentials
}

// StaticCredentials is a CredentialsProvider backed by fixed values
type StaticCredentials struct {
	Default Credentials
	Modes   map[Mode]Credentials
}

func (s StaticCredentials) ForMode(m Mode) Credentials {
	return s.Modes[m]
}

func (s StaticCredentials) Generic() Credentials {
	return s.Default
}

// resolveCredentials takes each field from the mode-specific set, falling
// back field by field to the generic set
func resolveCredentials(p CredentialsProvider, m Mode) Credentials {
	if p == nil {
		return Credentials{}
	}
	specific, generic := p.ForMode(m), p.Generic()
	if specific.User == "" {
		specific.User = generic.User
	}
	if specific.Password == "" {
		specific.Password = generic.Password
	}
	return specific
}

// ExecutableResolver lists candidate executable paths in preference order
type ExecutableResolver interface {
	Candidates(m Mode) []string
}

// LaunchTarget describes an external program this package can start
type LaunchTarget struct {
	Name        string
	ProcessName string // executable name as seen by discovery
	Icon        string

	Executable  ExecutableResolver
	Mode        Mode
	Connection  string // Srvr="..";Ref="..";  File="..";  or empty for plain tools
	Credentials CredentialsProvider
	ExtraArgs   []string
}

// Params are the per-call overrides of a launch
type Params struct {
	Mode        *Mode
	Credentials *Credentials
	ExtraArgs   []string
}

// WithMode returns Params overriding the target's mode
func WithMode(m Mode) Params {
	return Params{Mode: &m}
}

func (p Params) mode(target LaunchTarget) Mode {
	if p.Mode != nil {
		return *p.Mode
	}
	return target.Mode
}

func (p Params) credentials(target LaunchTarget, m Mode) Credentials {
	if p.Credentials != nil {
		return *p.Credentials
	}
	return resolveCredentials(target.Credentials, m)
}
