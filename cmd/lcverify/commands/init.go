package commands

import (
	"github.com/spf13/cobra"

	"github.com/tendermint/lightclients/config"
)

// MakeInitCommand returns the command that writes the default config file.
func MakeInitCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the home directory and write config.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteConfigFile(env.Config.RootDir, env.Config); err != nil {
				return err
			}
			env.Logger.Info("initialized home directory", "path", config.ConfigFile(env.Config.RootDir))
			return nil
		},
	}
}
