package launcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrExecutableNotFound is returned when no candidate path exists
var ErrExecutableNotFound = errors.New("executable not found")

// InstallLayout describes where platform versions are installed
type InstallLayout struct {
	ProgramFiles    string
	ProgramFilesX86 string
	PlatformDir     string // e.g. 1cv8
	ThickClient     string // e.g. 1cv8.exe
	ThinClient      string // e.g. 1cv8c.exe
	Starter         string // relative to PlatformDir, e.g. common\1cestart.exe
}

// InstallResolver resolves a platform executable: explicit override, then
// the version and architecture derived path, then the common starter
type InstallResolver struct {
	Layout   InstallLayout
	Override string // path template, ${VAR} from the environment plus ${version} and ${arch}
	Version  string
	Arch     string // x86_64 (default) or x86
	Client   string // thin or thick (default)
}

func (r InstallResolver) Candidates(m Mode) []string {
	var out []string

	if r.Override != "" {
		out = append(out, expandTemplate(r.Override, map[string]string{
			"version": r.Version,
			"arch":    r.Arch,
		}))
	}

	thick := r.Client != "thin" || m != ModePrimary
	exe := r.Layout.ThinClient
	if thick {
		exe = r.Layout.ThickClient
	}

	if r.Version != "" && exe != "" {
		root := r.Layout.ProgramFiles
		if is32bit(r.Arch) {
			root = r.Layout.ProgramFilesX86
		}
		out = append(out, filepath.Join(root, r.Layout.PlatformDir, r.Version, "bin", exe))
	}

	if thick && r.Layout.Starter != "" {
		for _, root := range []string{r.Layout.ProgramFiles, r.Layout.ProgramFilesX86} {
			if root != "" {
				out = append(out, filepath.Join(root, r.Layout.PlatformDir, r.Layout.Starter))
			}
		}
	}
	return out
}

func is32bit(arch string) bool {
	switch strings.ToLower(arch) {
	case "x86", "i386", "386", "win32":
		return true
	}
	return false
}

// PathResolver resolves a single path template
type PathResolver string

func (p PathResolver) Candidates(Mode) []string {
	if p == "" {
		return nil
	}
	return []string{expandTemplate(string(p), nil)}
}

// expandTemplate substitutes ${name} from vars first, then the environment
func expandTemplate(tmpl string, vars map[string]string) string {
	return os.Expand(tmpl, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return os.Getenv(name)
	})
}

// Resolve returns the first candidate that exists as a regular file
func Resolve(r ExecutableResolver, m Mode) (string, error) {
	if r == nil {
		return "", errors.Wrap(ErrExecutableNotFound, "no resolver configured")
	}

	candidates := r.Candidates(m)
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", errors.Wrapf(ErrExecutableNotFound, "tried %s", strings.Join(candidates, ", "))
}
