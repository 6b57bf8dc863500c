package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tendermint/lightclients/config"
	"github.com/tendermint/lightclients/libs/log"
)

const (
	flagNow = "now"
	flagHex = "hex"
)

// Env is shared by the commands of one invocation. The root command fills
// it from the config file, the environment and the flags.
type Env struct {
	Config *config.Config
	Logger log.Logger
}

// ParseConfig retrieves the default environment configuration and
// validates it.
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point of the offline
// verifier.
func RootCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lcverify",
		Short: "Verify counterparty headers and state proofs with on-disk light clients",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == VersionCmd.Name() {
				return nil
			}

			pconf, err := ParseConfig(env.Config)
			if err != nil {
				return err
			}
			env.Config = pconf
			if err := config.EnsureRoot(env.Config.RootDir); err != nil {
				return err
			}
			logger, err := log.NewLogger(cmd.ErrOrStderr(), env.Config.LogFormat, env.Config.LogLevel)
			if err != nil {
				return err
			}
			env.Logger = logger
			return nil
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("log-level", env.Config.LogLevel, "log level")
	cmd.PersistentFlags().String("log-format", env.Config.LogFormat, "log format (plain|json)")
	cmd.PersistentFlags().String(flagNow, "", "host time as RFC3339 (default: current time)")
	cmd.PersistentFlags().Bool(flagHex, false, "input files and keys are hex encoded")
	return cmd
}

// hostTime returns the --now flag or the current time.
func hostTime(cmd *cobra.Command) (time.Time, error) {
	s, err := cmd.Flags().GetString(flagNow)
	if err != nil {
		return time.Time{}, err
	}
	if s == "" {
		return time.Now(), nil
	}
	now, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", flagNow, err)
	}
	return now, nil
}
