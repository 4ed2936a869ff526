// pkg/config/config.go

// Package config layers supervisor settings from defaults, an optional YAML
// config file, a dotenv file, AOVPN_* environment variables and command flags,
// in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/supervisor"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "AOVPN"
	EnvFileVar     = "AOVPN_ENV_FILE"
	ConfigName     = "aovpn"
	SystemConfDir  = "/etc/aovpn"
	UserConfSubdir = ".aovpn"
)

// Keys shared by flags, environment variables and the config file.
const (
	KeyConfig         = "config"
	KeyService        = "service"
	KeyPort           = "port"
	KeyRestartTimeout = "restart-timeout"
	KeyStartupTimeout = "startup-timeout"
	KeyPortTimeout    = "port-timeout"
	KeyMaxAttempts    = "max-attempts"
	KeyPollInterval   = "poll-interval"
	KeySkipReboot     = "skip-reboot"
	KeyReport         = "report"
)

// SupervisorSettings is a validated supervisor configuration plus the
// command-level switches that sit around it.
type SupervisorSettings struct {
	Supervisor supervisor.Config
	SkipReboot bool
	ReportPath string
	// ConfigFile is the file that was read, empty if none.
	ConfigFile string
}

// AddSupervisorFlags registers the restart flags with the supervisor defaults.
// Durations are whole seconds.
func AddSupervisorFlags(cmd *cobra.Command) {
	def := supervisor.DefaultConfig()
	fs := cmd.Flags()
	fs.String(KeyService, def.ServiceName, "Name of the service to restart")
	fs.Int(KeyPort, def.Port, "TCP port the service must be listening on")
	fs.Int(KeyRestartTimeout, seconds(def.RestartTimeout), "Seconds before a restart call is treated as hung")
	fs.Int(KeyStartupTimeout, seconds(def.StartupTimeout), "Seconds to wait for the service to report running")
	fs.Int(KeyPortTimeout, seconds(def.PortCheckTimeout), "Seconds to wait for the port to start listening")
	fs.Int(KeyMaxAttempts, def.MaxAttempts, "Restart attempts before forcing a host reboot")
	fs.Int(KeyPollInterval, seconds(def.PollInterval), "Seconds between status and port polls")
	fs.Bool(KeySkipReboot, false, "Log the escalation instead of rebooting the host")
	fs.String(KeyReport, "", "Write a YAML run report to this path")
}

// New returns a viper instance carrying the supervisor defaults and the
// AOVPN_ environment prefix.
func New() *viper.Viper {
	v := viper.New()
	def := supervisor.DefaultConfig()
	v.SetDefault(KeyService, def.ServiceName)
	v.SetDefault(KeyPort, def.Port)
	v.SetDefault(KeyRestartTimeout, seconds(def.RestartTimeout))
	v.SetDefault(KeyStartupTimeout, seconds(def.StartupTimeout))
	v.SetDefault(KeyPortTimeout, seconds(def.PortCheckTimeout))
	v.SetDefault(KeyMaxAttempts, def.MaxAttempts)
	v.SetDefault(KeyPollInterval, seconds(def.PollInterval))
	v.SetDefault(KeySkipReboot, false)
	v.SetDefault(KeyReport, "")
	SetViperEnvPrefix(v, EnvPrefix)
	return v
}

// BindFlagsToViper binds all flags on a command to a Viper instance.
func BindFlagsToViper(cmd *cobra.Command, v *viper.Viper) error {
	var result error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			result = multierror.Append(result, err)
		}
	})
	return result
}

// SetViperEnvPrefix lets Viper read env vars with prefix, dashes mapped to underscores.
func SetViperEnvPrefix(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left untouched. An empty path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return aovpn_err.NewValidationError("cannot load env file "+path, err,
			"Check "+EnvFileVar+" points at a readable KEY=VALUE file")
	}
	return nil
}

// ReadConfigFile reads path, or searches the standard locations when path is
// empty. A missing file in the search locations is not an error. It returns
// the file that was used.
func ReadConfigFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return "", aovpn_err.NewValidationError("cannot read config file "+path, err,
				"Check the --config path exists and is valid YAML")
		}
		return v.ConfigFileUsed(), nil
	}

	for _, candidate := range SearchPaths() {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		v.SetConfigFile(candidate)
		if err := v.ReadInConfig(); err != nil {
			return "", aovpn_err.NewValidationError("cannot parse config file "+candidate, err,
				"Fix the YAML syntax in "+candidate)
		}
		return v.ConfigFileUsed(), nil
	}
	return "", nil
}

// SearchPaths lists the config files tried, in order, when --config is not
// given. Only .yaml and .yml are considered so that an aovpn.env dotenv file
// next to them is never parsed as config.
func SearchPaths() []string {
	dirs := []string{SystemConfDir}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, UserConfSubdir))
	}
	dirs = append(dirs, ".")

	var paths []string
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			paths = append(paths, filepath.Join(dir, ConfigName+ext))
		}
	}
	return paths
}

// LoadSupervisorConfig resolves the restart settings for cmd. The --config
// flag, if registered on cmd or a parent, names an explicit config file.
func LoadSupervisorConfig(cmd *cobra.Command) (*SupervisorSettings, error) {
	if err := LoadEnvFile(os.Getenv(EnvFileVar)); err != nil {
		return nil, err
	}

	v := New()

	var explicit string
	if f := cmd.Flags().Lookup(KeyConfig); f != nil {
		explicit = f.Value.String()
	}
	used, err := ReadConfigFile(v, explicit)
	if err != nil {
		return nil, err
	}

	if err := BindFlagsToViper(cmd, v); err != nil {
		return nil, aovpn_err.NewInternalError("binding flags to configuration", err)
	}

	settings := &SupervisorSettings{
		Supervisor: supervisor.Config{
			ServiceName:      strings.TrimSpace(v.GetString(KeyService)),
			Port:             v.GetInt(KeyPort),
			RestartTimeout:   time.Duration(v.GetInt(KeyRestartTimeout)) * time.Second,
			StartupTimeout:   time.Duration(v.GetInt(KeyStartupTimeout)) * time.Second,
			PortCheckTimeout: time.Duration(v.GetInt(KeyPortTimeout)) * time.Second,
			MaxAttempts:      v.GetInt(KeyMaxAttempts),
			PollInterval:     time.Duration(v.GetInt(KeyPollInterval)) * time.Second,
		},
		SkipReboot: v.GetBool(KeySkipReboot),
		ReportPath: v.GetString(KeyReport),
		ConfigFile: used,
	}
	if err := settings.Supervisor.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
