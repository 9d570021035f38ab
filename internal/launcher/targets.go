package launcher

import (
	"github.com/pkg/errors"

	"github.com/launchdeck/launchdeck/internal/config"
)

// LayoutFromConfig returns the install layout of cfg
func LayoutFromConfig(cfg config.LauncherConfig) InstallLayout {
	return InstallLayout{
		ProgramFiles:    cfg.ProgramFiles,
		ProgramFilesX86: cfg.ProgramFilesX86,
		PlatformDir:     cfg.PlatformDir,
		ThickClient:     cfg.ThickClient,
		ThinClient:      cfg.ThinClient,
		Starter:         cfg.Starter,
	}
}

// OptionsFromConfig returns orchestrator options for cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Command: CommandOptions{
			AttachDebugger: cfg.Launcher.AttachDebugger,
			DebuggerURL:    cfg.Launcher.DebuggerURL,
			ToolScriptPath: cfg.Launcher.ToolScriptPath,
		},
		ScriptDir:               cfg.Launcher.ScriptDir,
		ScriptEncoding:          cfg.Launcher.ScriptEncoding,
		CleanupDelay:            cfg.Launcher.CleanupDelay,
		MaintenanceCleanupDelay: cfg.Launcher.MaintenanceCleanupDelay,
		DumpDir:                 cfg.DumpDir(),
		LogDir:                  cfg.LogDir(),
	}
}

// BaseTarget builds a platform target from its targets.yaml entry
func BaseTarget(spec config.TargetSpec, layout InstallLayout) (LaunchTarget, error) {
	target, err := fromSpec(spec)
	if err != nil {
		return LaunchTarget{}, err
	}

	target.Executable = InstallResolver{
		Layout:   layout,
		Override: spec.Executable,
		Version:  spec.Version,
		Arch:     spec.Arch,
		Client:   spec.Client,
	}
	if target.ProcessName == "" {
		target.ProcessName = layout.ThickClient
		if spec.Client == "thin" {
			target.ProcessName = layout.ThinClient
		}
	}
	return target, nil
}

// ToolTarget builds a plain tool target from its targets.yaml entry
func ToolTarget(spec config.TargetSpec) (LaunchTarget, error) {
	target, err := fromSpec(spec)
	if err != nil {
		return LaunchTarget{}, err
	}
	target.Executable = PathResolver(spec.Executable)
	return target, nil
}

func fromSpec(spec config.TargetSpec) (LaunchTarget, error) {
	mode, err := ParseMode(spec.Mode)
	if err != nil {
		return LaunchTarget{}, errors.Wrapf(err, "target %q", spec.Name)
	}

	creds := StaticCredentials{
		Default: Credentials{User: spec.Credentials.User, Password: spec.Credentials.Password},
		Modes:   make(map[Mode]Credentials),
	}
	for name, c := range spec.Credentials.Modes {
		m, err := ParseMode(name)
		if err != nil {
			return LaunchTarget{}, errors.Wrapf(err, "target %q credentials", spec.Name)
		}
		creds.Modes[m] = Credentials{User: c.User, Password: c.Password}
	}

	return LaunchTarget{
		Name:        spec.Name,
		ProcessName: spec.Process,
		Icon:        spec.Icon,
		Mode:        mode,
		Connection:  spec.Connection,
		Credentials: creds,
		ExtraArgs:   spec.Args,
	}, nil
}
