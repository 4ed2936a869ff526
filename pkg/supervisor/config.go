// pkg/supervisor/config.go

package supervisor

import (
	"time"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/go-playground/validator/v10"
)

const (
	// DefaultServiceName is the RRAS service hosting the SSTP listener.
	DefaultServiceName = "RemoteAccess"
	// DefaultPort is the SSTP (HTTPS) listener port.
	DefaultPort = 443

	DefaultRestartTimeout   = 300 * time.Second
	DefaultStartupTimeout   = 60 * time.Second
	DefaultPortCheckTimeout = 60 * time.Second
	DefaultMaxAttempts      = 3
	DefaultPollInterval     = 5 * time.Second
)

var validate = validator.New()

// Config bounds one supervised restart.
type Config struct {
	ServiceName string `validate:"required"`
	Port        int    `validate:"min=1,max=65535"`

	// RestartTimeout bounds the restart call itself before it is treated as hung.
	RestartTimeout time.Duration `validate:"gt=0"`
	// StartupTimeout bounds polling for the Running state after the restart returns.
	StartupTimeout time.Duration `validate:"gt=0"`
	// PortCheckTimeout bounds polling for a listener once the service is Running.
	PortCheckTimeout time.Duration `validate:"gt=0"`
	MaxAttempts      int           `validate:"min=1"`
	PollInterval     time.Duration `validate:"gt=0"`
}

// DefaultConfig returns the RemoteAccess/443 defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:      DefaultServiceName,
		Port:             DefaultPort,
		RestartTimeout:   DefaultRestartTimeout,
		StartupTimeout:   DefaultStartupTimeout,
		PortCheckTimeout: DefaultPortCheckTimeout,
		MaxAttempts:      DefaultMaxAttempts,
		PollInterval:     DefaultPollInterval,
	}
}

// Validate checks field bounds.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return aovpn_err.NewValidationError("invalid supervisor configuration", err,
			"Service name must be set",
			"Port must be between 1 and 65535",
			"Timeouts and the poll interval must be positive",
			"Max attempts must be at least 1")
	}
	return nil
}
