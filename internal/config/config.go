package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/launchdeck/launchdeck/internal/logging"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Process discovery and termination
	Discovery DiscoveryConfig

	// Launch orchestration
	Launcher LauncherConfig

	// Global hotkey
	Hotkey HotkeyConfig

	// Refresh behaviour
	Refresh RefreshConfig

	// Status API configuration
	Web WebConfig

	// Single instance guard
	Daemon DaemonConfig

	Logging logging.Config

	// Path to targets.yaml; empty means no launch targets
	TargetsFile string `split_words:"true"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `split_words:"true"` // Path to SQLite database file
}

// DiscoveryConfig holds process discovery configuration
type DiscoveryConfig struct {
	ManagedProcesses  []string      `split_words:"true"` // Executable names of platform instances
	AcceptUntitled    bool          `split_words:"true"` // Accept windows with an empty title
	ClosePollInterval time.Duration `split_words:"true"` // Graceful close poll interval
}

// LauncherConfig holds executable resolution and script settings
type LauncherConfig struct {
	ProgramFiles    string `split_words:"true"`
	ProgramFilesX86 string `split_words:"true"`
	PlatformDir     string `split_words:"true"` // Directory under Program Files
	ThickClient     string `split_words:"true"`
	ThinClient      string `split_words:"true"`
	Starter         string `split_words:"true"` // Common starter, thick client only

	ScriptDir               string        `split_words:"true"`
	ScriptEncoding          string        `split_words:"true"` // Code page of single-step scripts
	CleanupDelay            time.Duration `split_words:"true"`
	MaintenanceCleanupDelay time.Duration `split_words:"true"`

	AttachDebugger bool   `split_words:"true"`
	DebuggerURL    string `split_words:"true"`
	ToolScriptPath string `split_words:"true"` // Entry point run by auxiliary tool mode

	DumpDir string `split_words:"true"` // Configuration dumps; empty means ScriptDir
	LogDir  string `split_words:"true"` // Maintenance logs; empty means ScriptDir
}

// HotkeyConfig holds the global hotkey binding
type HotkeyConfig struct {
	Enabled   bool          `split_words:"true"`
	ID        int           `split_words:"true"`
	Modifiers uint32        `split_words:"true"` // ModAlt=1, ModControl=2, ModShift=4, ModWin=8
	Key       uint32        `split_words:"true"` // Virtual key code
	Poll      time.Duration `split_words:"true"` // Native message pump interval
}

// RefreshConfig holds refresh timing
type RefreshConfig struct {
	LaunchSettleDelay time.Duration `split_words:"true"`
	CloseSettleDelay  time.Duration `split_words:"true"`
	RecentLimit       int           `split_words:"true"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Enabled bool   `split_words:"true"`
	Host    string `split_words:"true"` // Host to bind web server to
	Port    int    `split_words:"true"` // Port for web server
}

// DaemonConfig holds the run command's instance guard
type DaemonConfig struct {
	PIDFile string `split_words:"true"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	programFilesX86 := os.Getenv("ProgramFiles(x86)")
	if programFilesX86 == "" {
		programFilesX86 = `C:\Program Files (x86)`
	}

	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/launchdeck/launchdeck.db
		},
		Discovery: DiscoveryConfig{
			ManagedProcesses:  []string{"1cv8.exe", "1cv8c.exe"},
			AcceptUntitled:    true,
			ClosePollInterval: 100 * time.Millisecond,
		},
		Launcher: LauncherConfig{
			ProgramFiles:            programFiles,
			ProgramFilesX86:         programFilesX86,
			PlatformDir:             "1cv8",
			ThickClient:             "1cv8.exe",
			ThinClient:              "1cv8c.exe",
			Starter:                 filepath.Join("common", "1cestart.exe"),
			ScriptDir:               os.TempDir(),
			ScriptEncoding:          "cp866",
			CleanupDelay:            3 * time.Second,
			MaintenanceCleanupDelay: 60 * time.Second,
			AttachDebugger:          true,
			DebuggerURL:             "tcp://localhost",
		},
		Hotkey: HotkeyConfig{
			Enabled:   true,
			ID:        1,
			Modifiers: 0x0002 | 0x0004, // Ctrl+Shift
			Key:       0xC0,            // Ё on Russian layouts
			Poll:      50 * time.Millisecond,
		},
		Refresh: RefreshConfig{
			LaunchSettleDelay: time.Second,
			CloseSettleDelay:  10 * time.Millisecond,
			RecentLimit:       10,
		},
		Web: WebConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    17800,
		},
		Daemon: DaemonConfig{
			PIDFile: filepath.Join(os.TempDir(), "launchdeck.pid"),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Discovery.ManagedProcesses) == 0 {
		return errors.New("at least one managed process name is required")
	}
	for _, name := range c.Discovery.ManagedProcesses {
		if strings.TrimSpace(name) == "" {
			return errors.New("managed process names cannot be blank")
		}
	}

	if c.Discovery.ClosePollInterval <= 0 {
		return fmt.Errorf("close poll interval must be positive, got %v", c.Discovery.ClosePollInterval)
	}

	if c.Launcher.ScriptDir == "" {
		return errors.New("script directory cannot be empty")
	}

	if c.Launcher.CleanupDelay < 0 || c.Launcher.MaintenanceCleanupDelay < 0 {
		return errors.New("cleanup delays cannot be negative")
	}

	if c.Launcher.MaintenanceCleanupDelay < c.Launcher.CleanupDelay {
		return fmt.Errorf("maintenance cleanup delay (%v) cannot be shorter than cleanup delay (%v)",
			c.Launcher.MaintenanceCleanupDelay, c.Launcher.CleanupDelay)
	}

	if c.Hotkey.Enabled {
		if c.Hotkey.ID < 0 || c.Hotkey.ID > 0xBFFF {
			return fmt.Errorf("hotkey id must be between 0 and 0xBFFF, got %d", c.Hotkey.ID)
		}
		if c.Hotkey.Key == 0 {
			return errors.New("hotkey key cannot be zero")
		}
		if c.Hotkey.Poll <= 0 {
			return errors.New("hotkey poll interval must be positive")
		}
	}

	if c.Refresh.LaunchSettleDelay < 0 || c.Refresh.CloseSettleDelay < 0 {
		return errors.New("settle delays cannot be negative")
	}

	if c.Refresh.RecentLimit < 1 {
		return fmt.Errorf("recent limit must be at least 1, got %d", c.Refresh.RecentLimit)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return errors.New("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return errors.New("PID file path cannot be empty")
	}

	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// SetClosePollInterval sets the graceful close poll interval with validation
func (c *Config) SetClosePollInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("close poll interval must be positive, got %v", interval)
	}
	c.Discovery.ClosePollInterval = interval
	return nil
}

// DumpDir returns the directory for configuration dumps
func (c *Config) DumpDir() string {
	if c.Launcher.DumpDir != "" {
		return c.Launcher.DumpDir
	}
	return c.Launcher.ScriptDir
}

// LogDir returns the directory for maintenance logs
func (c *Config) LogDir() string {
	if c.Launcher.LogDir != "" {
		return c.Launcher.LogDir
	}
	return c.Launcher.ScriptDir
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Discovery:
    Managed Processes: %s
    Accept Untitled: %v
    Close Poll Interval: %v
  Launcher:
    Program Files: %s
    Program Files (x86): %s
    Script Dir: %s
    Script Encoding: %s
    Cleanup Delay: %v
    Maintenance Cleanup Delay: %v
  Hotkey:
    Enabled: %v
    ID: %d
    Modifiers: 0x%04x
    Key: 0x%02x
  Web:
    Host: %s
    Port: %d
  PID File: %s
  Targets File: %s`,
		c.Database.Path,
		strings.Join(c.Discovery.ManagedProcesses, ", "),
		c.Discovery.AcceptUntitled,
		c.Discovery.ClosePollInterval,
		c.Launcher.ProgramFiles,
		c.Launcher.ProgramFilesX86,
		c.Launcher.ScriptDir,
		c.Launcher.ScriptEncoding,
		c.Launcher.CleanupDelay,
		c.Launcher.MaintenanceCleanupDelay,
		c.Hotkey.Enabled,
		c.Hotkey.ID,
		c.Hotkey.Modifiers,
		c.Hotkey.Key,
		c.Web.Host,
		c.Web.Port,
		c.Daemon.PIDFile,
		c.TargetsFile,
	)
}
