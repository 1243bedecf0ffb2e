// Package infra implements infrastructure concerns: preference stores,
// process inspection and console host adapters.
package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents who the engine runs as.
type ExecMode string

const (
	// ExecModeUser keeps data under the invoking user's home.
	ExecModeUser ExecMode = "user"
	// ExecModeSystem keeps data in a system directory (root).
	ExecModeSystem ExecMode = "system"
)

const systemDataDir = "/var/lib/focusguard"

// ExecModeConfig holds paths derived from the execution mode.
type ExecModeConfig struct {
	Mode    ExecMode
	DataDir string // Where preferences, key and database live
	IsRoot  bool
}

// DetectExecMode determines the execution mode based on effective UID.
func DetectExecMode() *ExecModeConfig {
	if os.Geteuid() == 0 && os.Getenv("SUDO_USER") == "" {
		return &ExecModeConfig{
			Mode:    ExecModeSystem,
			DataDir: systemDataDir,
			IsRoot:  true,
		}
	}
	return &ExecModeConfig{
		Mode:    ExecModeUser,
		DataDir: filepath.Join(GetRealUserHome(), ".focusguard"),
		IsRoot:  os.Geteuid() == 0,
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root)"
	case ExecModeUser:
		return "user"
	default:
		return "unknown"
	}
}

// GetRealUserHome returns the invoking user's home directory, even under sudo.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
