// Package config loads heifbox's runtime settings: log level/format plus
// the brand set the "write" subcommand passes to the writer, layered from
// a config file, environment variables, and defaults
// via viper the way the pack's CLI-fronted repos bind theirs.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Settings is heifbox's top-level configuration.
type Settings struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// MajorBrand/CompatibleBrands seed writer.Config for every "write"
	// invocation; the subcommand has no flags that override them.
	MajorBrand       string   `mapstructure:"major_brand"`
	CompatibleBrands []string `mapstructure:"compatible_brands"`
}

// Load reads heifbox.{yaml,json,toml} from cfgFile if set, else from the
// current directory and $HOME/.config/heifbox, with HEIFBOX_-prefixed
// environment variables overriding file values and sane defaults
// underneath both. A missing config file is not an error: every Settings
// field has a usable default.
func Load(cfgFile string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("HEIFBOX")
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("major_brand", "heic")
	v.SetDefault("compatible_brands", []string{"mif1", "heic"})

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("heifbox")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/heifbox")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &s, nil
}
