// Package cli defines the xbar command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/soapywu/xbar/config"
	"github.com/soapywu/xbar/locator"
	"github.com/soapywu/xbar/logging"
	"github.com/soapywu/xbar/patcher"
	"github.com/soapywu/xbar/pbxproj"
	"github.com/soapywu/xbar/runner"
)

type rootOptions struct {
	configFile string
	envFiles   []string
}

// NewRootCommand builds the command tree. All output, logs included, goes
// to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	v := viper.New()
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "xbar [path ...]",
		Short: "Patch Xcode projects so prebuilt dependencies build with newer toolchains",
		Long: `xbar rewrites VALID_ARCHS, EXCLUDED_ARCHS and IPHONEOS_DEPLOYMENT_TARGET in
Xcode projects and saves the projects that changed.

With no paths it patches every .xcodeproj under the search directory
(Carthage/Checkouts by default). Paths may name a .xcodeproj bundle or its
project.pbxproj file.

Rules: ` + strings.Join(patcher.RuleNames(), ", ") + `
Profiles: ` + strings.Join(patcher.ProfileNames(), ", "),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatch(cmd, v, opts, args, out)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := cmd.Flags()
	flags.String("profile", patcher.DefaultProfile, "rule profile: "+strings.Join(patcher.ProfileNames(), ", "))
	flags.String("search-dir", locator.DefaultSearchDir, "directory searched when no paths are given")
	flags.String("finder", locator.FinderFind, "how to search: find (find(1)) or glob")
	flags.StringSlice("arch", nil, "architecture to exclude (repeatable); overrides the profile")
	flags.String("deployment-target", "", "IPHONEOS_DEPLOYMENT_TARGET to pin; overrides the profile")
	flags.StringSlice("rules", nil, "ordered rule names; overrides the profile")
	flags.String("match", "", "excluded-arch check: substring or token")
	flags.Bool("verify", true, "check the serialized project reads back before replacing it")
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ./xbar.yaml)")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load (default .env)")
	cmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	cmd.PersistentFlags().String("log-format", logging.FormatConsole, "console or json")
	cmd.PersistentFlags().String("log-file", "", "also write JSON logs to this file")

	bind := map[string]string{
		config.KeyProfile:          "profile",
		config.KeySearchDir:        "search-dir",
		config.KeyFinder:           "finder",
		config.KeyArchs:            "arch",
		config.KeyDeploymentTarget: "deployment-target",
		config.KeyRules:            "rules",
		config.KeyMatch:            "match",
		config.KeyVerify:           "verify",
	}
	for key, name := range bind {
		mustBind(v, key, flags.Lookup(name))
	}
	persistent := map[string]string{
		config.KeyLogLevel:  "log-level",
		config.KeyLogFormat: "log-format",
		config.KeyLogFile:   "log-file",
	}
	for key, name := range persistent {
		mustBind(v, key, cmd.PersistentFlags().Lookup(name))
	}

	cmd.AddCommand(newDumpCommand(out))
	return cmd
}

// mustBind panics when a config key cannot be bound; a nil flag means the
// flag name in the bind table is wrong.
func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

// Execute runs the command line against os.Args and stdout.
func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

func loadConfig(v *viper.Viper, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(v, config.LoadOptions{
		ConfigFile: opts.configFile,
		EnvFiles:   opts.envFiles,
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

func runPatch(cmd *cobra.Command, v *viper.Viper, opts *rootOptions, args []string, out io.Writer) error {
	cfg, err := loadConfig(v, opts)
	if err != nil {
		return err
	}

	logOpts := cfg.LoggingOptions()
	logOpts.Out = out
	logger, err := logging.New(logOpts)
	if err != nil {
		return usageError(err)
	}
	defer func() { _ = logger.Sync() }()

	rules, err := cfg.PatcherRules()
	if err != nil {
		return usageError(err)
	}
	finder, err := locator.NewFinder(cfg.Finder)
	if err != nil {
		return usageError(err)
	}

	logger.Debug("Configuration loaded",
		zap.String("profile", cfg.Profile),
		zap.Strings("rules", cfg.Rules),
		zap.Strings("archs", cfg.Archs),
		zap.String("deployment_target", cfg.DeploymentTarget),
		zap.String("match", cfg.Match))

	loc := locator.New(finder, cfg.SearchDir, logger)
	p := patcher.New(rules, cfg.Params(), logger, pbxproj.WithVerify(cfg.Verify))
	_, err = runner.New(loc, p, logger, out).Run(cmd.Context(), args)
	return err
}
