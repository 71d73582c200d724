// Package config loads daisy's settings from a yaml file and DAISY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/roach88/daisy/internal/logger"
)

const (
	// AppName names the config file (daisy.yaml) and the config directory.
	AppName = "daisy"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "DAISY"
)

// Config holds the application configuration.
type Config struct {
	// Locale selects the catalog used for titles, labels and summaries.
	Locale string `mapstructure:"locale" yaml:"locale"`

	Store struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"store" yaml:"store"`

	Cards struct {
		Dirs   []string `mapstructure:"dirs" yaml:"dirs"`
		Strict bool     `mapstructure:"strict" yaml:"strict"`
	} `mapstructure:"cards" yaml:"cards"`

	Log logger.Config `mapstructure:"log" yaml:"log"`

	Output struct {
		Format string `mapstructure:"format" yaml:"format"` // json|text
	} `mapstructure:"output" yaml:"output"`
}

// keys are bound to environment variables: store.path -> DAISY_STORE_PATH.
var keys = []string{
	"locale",
	"store.path",
	"cards.dirs",
	"cards.strict",
	"log.level",
	"log.format",
	"log.file",
	"output.format",
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Locale = "en"
	c.Store.Path = defaultStorePath()
	c.Log = logger.DefaultConfig()
	c.Output.Format = "text"
	return c
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return AppName + ".db"
	}
	return filepath.Join(dir, AppName, AppName+".db")
}

// Load reads the configuration. An explicit file must exist; otherwise
// daisy.yaml is searched in the working directory and the user config
// directory, and a missing file is not an error. Unset values take
// their defaults.
func Load(file string) (Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}
	if err := mergo.Merge(&c, Default()); err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}
	switch c.Output.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid output format %q: must be json or text", c.Output.Format)
	}
	switch c.Log.Format {
	case logger.FormatJSON, logger.FormatHuman:
	default:
		return fmt.Errorf("invalid log format %q: must be json or human", c.Log.Format)
	}
	return nil
}
