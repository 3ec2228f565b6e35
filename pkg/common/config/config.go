package config

import (
	"strings"

	"github.com/spf13/viper"

	oserrors "github.com/vnykmshr/objstream/pkg/common/errors"
	"github.com/vnykmshr/objstream/pkg/common/validation"
	"github.com/vnykmshr/objstream/pkg/streaming/buffer"
	"github.com/vnykmshr/objstream/pkg/streaming/duplex"
)

// EnvPrefix is prepended to environment variable names, so high_water_mark
// is read from OBJSTREAM_HIGH_WATER_MARK.
const EnvPrefix = "OBJSTREAM"

// StreamConfig is the file and environment form of duplex.Config.
type StreamConfig struct {
	Name                  string `mapstructure:"name"`
	HighWaterMark         int    `mapstructure:"high_water_mark"`
	ReadableHighWaterMark int    `mapstructure:"readable_high_water_mark"`
	WritableHighWaterMark int    `mapstructure:"writable_high_water_mark"`
	Strategy              string `mapstructure:"strategy"`
}

// Validate checks sizes and the strategy name. Zero sizes are allowed and
// mean "use the default".
func (c StreamConfig) Validate() error {
	if err := validation.ValidateNonNegative("config", "high_water_mark", c.HighWaterMark); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("config", "readable_high_water_mark", c.ReadableHighWaterMark); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("config", "writable_high_water_mark", c.WritableHighWaterMark); err != nil {
		return err
	}
	return validation.ValidateOneOf("config", "strategy", c.Strategy, buffer.StrategyNames()...)
}

// Duplex converts c to a duplex.Config. Logger and Metrics are left unset.
func (c StreamConfig) Duplex() (duplex.Config, error) {
	if err := c.Validate(); err != nil {
		return duplex.Config{}, err
	}

	cfg := duplex.DefaultConfig()
	cfg.Name = c.Name
	if c.HighWaterMark > 0 {
		cfg.HighWaterMark = c.HighWaterMark
	}
	cfg.ReadableHighWaterMark = c.ReadableHighWaterMark
	cfg.WritableHighWaterMark = c.WritableHighWaterMark
	if c.Strategy != "" {
		cfg.Strategy, _ = buffer.ParseStrategy(c.Strategy)
	}
	return cfg, nil
}

// New returns a viper instance with stream defaults registered and
// environment overrides enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("name", "")
	v.SetDefault("high_water_mark", buffer.DefaultHighWaterMark)
	v.SetDefault("readable_high_water_mark", 0)
	v.SetDefault("writable_high_water_mark", 0)
	v.SetDefault("strategy", buffer.Block.String())
	return v
}

// Load reads stream options from the file at path (YAML, JSON or TOML by
// extension) with environment overrides. An empty path loads defaults and
// environment only.
func Load(path string) (duplex.Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return duplex.Config{}, oserrors.NewOperationError("config", "Load", err).WithContext("path=" + path)
		}
	}
	return Decode(v)
}

// Decode builds a duplex.Config from the keys of v.
func Decode(v *viper.Viper) (duplex.Config, error) {
	var sc StreamConfig
	if err := v.Unmarshal(&sc); err != nil {
		return duplex.Config{}, oserrors.NewOperationError("config", "Decode", err)
	}
	return sc.Duplex()
}
