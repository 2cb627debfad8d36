package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment overrides, e.g. BSVM_BUDGET.
const EnvPrefix = "BSVM"

// Load reads parameters from path (YAML, JSON or TOML by extension) on top
// of Default and applies BSVM_* environment overrides. An empty path loads
// defaults and environment only. The result is validated.
func Load(path string) (Params, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, Default()); err != nil {
		return Params{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Params{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var p Params
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&p, hook); err != nil {
		return Params{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// setDefaults registers every key so that environment overrides apply to
// keys absent from the file.
func setDefaults(v *viper.Viper, p Params) error {
	var m map[string]any
	if err := mapstructure.Decode(p, &m); err != nil {
		return fmt.Errorf("config: defaults: %w", err)
	}
	for k, val := range m {
		switch x := val.(type) {
		case Algorithm:
			val = int(x)
		case fmt.Stringer:
			val = x.String()
		}
		v.SetDefault(k, val)
	}
	return nil
}

// Save writes p to path as YAML.
func Save(path string, p Params) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
