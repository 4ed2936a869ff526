/* pkg/logger/paths.go */

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap/zapcore"
)

const logFileName = "aovpn.log"

// PlatformLogPaths returns candidate log paths in order of priority for the platform.
func PlatformLogPaths() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramData"), "aovpn", logFileName),
			filepath.Join(os.Getenv("LOCALAPPDATA"), "aovpn", logFileName),
			filepath.Join(".", logFileName),
		}
	case "linux":
		return []string{
			filepath.Join("/var/log/aovpn", logFileName),
			filepath.Join(os.Getenv("HOME"), ".local", "state", "aovpn", logFileName),
			filepath.Join(os.TempDir(), "aovpn", logFileName),
		}
	default:
		return []string{filepath.Join(".", logFileName)}
	}
}

// GetLogFileWriter opens path for appending, creating the directory with owner-only permissions.
func GetLogFileWriter(path string) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return zapcore.AddSync(file), nil
}

// FindWritableLogPath returns the first usable log path and its writer.
// AOVPN_LOG_FILE overrides the platform list.
func FindWritableLogPath() (string, zapcore.WriteSyncer, error) {
	candidates := PlatformLogPaths()
	if override := os.Getenv("AOVPN_LOG_FILE"); override != "" {
		candidates = []string{override}
	}
	for _, path := range candidates {
		if writer, err := GetLogFileWriter(path); err == nil {
			return path, writer, nil
		}
	}
	return "", nil, fmt.Errorf("no writable log path found")
}
