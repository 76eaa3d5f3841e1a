package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/scheduler"
	"github.com/matrixise/xpr-wallet/internal/validate"
)

const defaultStateFile = "~/.xpr-wallet/state.yaml"

// Config represents the application configuration
type Config struct {
	Network           string                       `mapstructure:"network" validate:"required,network"`
	Account           string                       `mapstructure:"account" validate:"omitempty,account_name"`
	Permission        string                       `mapstructure:"permission" validate:"required,account_name"`
	LogLevel          string                       `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort          int                          `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	Interval          string                       `mapstructure:"interval" validate:"omitempty,schedule"`
	Timezone          string                       `mapstructure:"timezone" validate:"omitempty,timezone"`
	RunImmediately    *bool                        `mapstructure:"run_immediately"`
	StateFile         string                       `mapstructure:"state_file"`
	PriceAPI          string                       `mapstructure:"price_api" validate:"required,url"`
	PriceTTL          time.Duration                `mapstructure:"price_ttl" validate:"min=0"`
	RequestsPerSecond float64                      `mapstructure:"requests_per_second" validate:"gt=0"`
	Accounts          []string                     `mapstructure:"accounts" validate:"omitempty,dive,account_name"`
	Networks          map[string]network.Overrides `mapstructure:"networks" validate:"omitempty,dive,keys,network,endkeys"`
}

// Normalize lower-cases the enumerated fields, expands a leading ~ in the
// state file path and folds the single account into the watch list when the
// list is empty.
func (c *Config) Normalize() error {
	c.Network = strings.ToLower(strings.TrimSpace(c.Network))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Account = strings.TrimSpace(c.Account)

	if c.StateFile == "" {
		c.StateFile = defaultStateFile
	}
	if strings.HasPrefix(c.StateFile, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		c.StateFile = filepath.Join(home, c.StateFile[2:])
	}

	accounts := c.Accounts[:0]
	for _, a := range c.Accounts {
		if a = strings.TrimSpace(a); a != "" {
			accounts = append(accounts, a)
		}
	}
	c.Accounts = accounts
	if len(c.Accounts) == 0 && c.Account != "" {
		c.Accounts = []string{c.Account}
	}

	if len(c.Networks) > 0 {
		normalized := make(map[string]network.Overrides, len(c.Networks))
		for name, o := range c.Networks {
			normalized[strings.ToLower(name)] = o
		}
		c.Networks = normalized
	}
	return nil
}

// GetTimezone returns the configured location, UTC when unset or invalid
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldRunImmediately reports whether the watcher runs once at startup.
// Defaults to true.
func (c *Config) ShouldRunImmediately() bool {
	if c.RunImmediately == nil {
		return true
	}
	return *c.RunImmediately
}

// IsCronExpression reports whether Interval is a cron expression rather
// than a duration
func (c *Config) IsCronExpression() bool {
	return len(strings.Fields(c.Interval)) >= 5
}

// ResolveNetwork returns the descriptor for name with the configured
// overrides applied. An empty name selects the configured network.
func (c *Config) ResolveNetwork(name string) (network.Network, error) {
	if name == "" {
		name = c.Network
	}
	net, err := network.Get(name)
	if err != nil {
		return network.Network{}, err
	}
	if o, ok := c.Networks[string(net.Name)]; ok {
		net = net.WithOverrides(o)
	}
	return net, nil
}

func accountNameValidator(fl validator.FieldLevel) bool {
	return validate.Recipient(fl.Field().String())
}

// scheduleValidator accepts durations aligned to the clock and cron expressions
func scheduleValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	return scheduler.ValidateScheduleInterval(fl.Field().String()) == nil
}

func timezoneValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

func networkValidator(fl validator.FieldLevel) bool {
	return network.Valid(fl.Field().String())
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("account_name", accountNameValidator)
	v.RegisterValidation("schedule", scheduleValidator)
	v.RegisterValidation("timezone", timezoneValidator)
	v.RegisterValidation("network", networkValidator)
	return v
}
