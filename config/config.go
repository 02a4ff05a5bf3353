// Package config resolves the run configuration from flags, XBAR_* environment
// variables, an optional xbar.yaml and the selected profile.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/soapywu/xbar/locator"
	"github.com/soapywu/xbar/logging"
	"github.com/soapywu/xbar/patcher"
)

const (
	EnvPrefix      = "XBAR"
	ConfigFileName = "xbar"
)

// viper keys
const (
	KeyProfile          = "profile"
	KeySearchDir        = "search_dir"
	KeyFinder           = "finder"
	KeyArchs            = "archs"
	KeyDeploymentTarget = "deployment_target"
	KeyRules            = "rules"
	KeyMatch            = "match"
	KeyVerify           = "verify"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
	KeyLogFile          = "log_file"
)

type Config struct {
	Profile          string   `mapstructure:"profile"`
	SearchDir        string   `mapstructure:"search_dir"`
	Finder           string   `mapstructure:"finder"`
	Archs            []string `mapstructure:"archs"`
	DeploymentTarget string   `mapstructure:"deployment_target"`
	Rules            []string `mapstructure:"rules"`
	Match            string   `mapstructure:"match"`
	Verify           bool     `mapstructure:"verify"`
	LogLevel         string   `mapstructure:"log_level"`
	LogFormat        string   `mapstructure:"log_format"`
	LogFile          string   `mapstructure:"log_file"`
}

type LoadOptions struct {
	// ConfigFile is an explicit config path; when empty xbar.yaml is looked
	// up in the working directory and its absence is not an error.
	ConfigFile string
	// EnvFiles are loaded into the environment before it is read. Defaults
	// to .env; missing files are ignored. Existing variables win.
	EnvFiles []string
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProfile, patcher.DefaultProfile)
	v.SetDefault(KeySearchDir, locator.DefaultSearchDir)
	v.SetDefault(KeyFinder, locator.FinderFind)
	v.SetDefault(KeyArchs, []string{})
	v.SetDefault(KeyDeploymentTarget, "")
	v.SetDefault(KeyRules, []string{})
	v.SetDefault(KeyMatch, "")
	v.SetDefault(KeyVerify, true)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, logging.FormatConsole)
	v.SetDefault(KeyLogFile, "")
}

// Load reads configuration into a Config, fills profile defaults and
// validates the result. Flags should already be bound to v.
func Load(v *viper.Viper, opts LoadOptions) (*Config, error) {
	envFiles := opts.EnvFiles
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		_ = godotenv.Load(file)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Archs = splitList(cfg.Archs)
	cfg.Rules = splitList(cfg.Rules)

	if err := cfg.applyProfile(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList accepts both list values and single space or comma separated
// strings, as they arrive from the environment.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, field := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, field)
		}
	}
	return out
}

func (c *Config) applyProfile() error {
	profile, err := patcher.LookupProfile(c.Profile)
	if err != nil {
		return err
	}
	c.Profile = profile.Name
	if len(c.Archs) == 0 {
		c.Archs = profile.Archs
	}
	if c.DeploymentTarget == "" {
		c.DeploymentTarget = profile.DeploymentTarget
	}
	if len(c.Rules) == 0 {
		c.Rules = profile.Rules
	}
	if c.Match == "" {
		c.Match = string(profile.Match)
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := patcher.LookupProfile(c.Profile); err != nil {
		return err
	}
	rules, err := patcher.Rules(c.Rules)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return errors.New("no rules selected")
	}
	if _, err := patcher.ParseMatchMode(c.Match); err != nil {
		return err
	}
	if _, err := locator.NewFinder(c.Finder); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if len(c.Archs) == 0 {
		for _, rule := range rules {
			switch rule.Name {
			case patcher.RuleExcludeArchs, patcher.RuleExcludeArchsIfPresent, patcher.RuleRemoveValidArch:
				return fmt.Errorf("rule %s needs at least one architecture", rule.Name)
			}
		}
	}
	return nil
}

// PatcherRules resolves the configured rule names.
func (c *Config) PatcherRules() ([]patcher.Rule, error) {
	return patcher.Rules(c.Rules)
}

func (c *Config) Params() patcher.Params {
	match, _ := patcher.ParseMatchMode(c.Match)
	return patcher.Params{
		Archs:            c.Archs,
		DeploymentTarget: c.DeploymentTarget,
		Match:            match,
	}
}

func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		File:   c.LogFile,
	}
}
