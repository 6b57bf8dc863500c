package main

import (
	"os"
	"path/filepath"

	"github.com/tendermint/lightclients/cmd/lcverify/commands"
	"github.com/tendermint/lightclients/config"
	"github.com/tendermint/lightclients/libs/cli"
	"github.com/tendermint/lightclients/libs/log"
)

func main() {
	env := &commands.Env{
		Config: config.DefaultConfig(),
		Logger: log.NewNopLogger(),
	}

	rootCmd := commands.RootCommand(env)
	rootCmd.AddCommand(
		commands.MakeInitCommand(env),
		commands.MakeCreateClientCommand(env),
		commands.MakeUpdateClientCommand(env),
		commands.MakeVerifyMembershipCommand(env),
		commands.MakeVerifyNonMembershipCommand(env),
		commands.MakeStatusCommand(env),
		commands.VersionCmd,
	)

	cmd := cli.PrepareBaseCmd(rootCmd, "LC", os.ExpandEnv(filepath.Join("$HOME", config.DefaultHomeDir)))
	cli.Execute(cmd)
}
