package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightclients/client"
)

// MakeCreateClientCommand returns the command that creates a client from an
// encoded client state and consensus state.
func MakeCreateClientCommand(env *Env) *cobra.Command {
	var kind, clientStateFile, consensusStateFile string

	cmd := &cobra.Command{
		Use:   "create-client",
		Short: "Create a light client from an encoded client and consensus state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := client.Kind(kind)
			if err := k.ValidateBasic(); err != nil {
				return err
			}
			now, err := hostTime(cmd)
			if err != nil {
				return err
			}
			cs, err := readInput(cmd, clientStateFile)
			if err != nil {
				return fmt.Errorf("client state: %w", err)
			}
			cons, err := readInput(cmd, consensusStateFile)
			if err != nil {
				return fmt.Errorf("consensus state: %w", err)
			}
			if err := checkTrustPolicy(env.Config.Verifier, k, cs); err != nil {
				return err
			}

			r, closeDB, err := openRouter(env)
			if err != nil {
				return err
			}
			defer closeDB()

			clientID, events, err := r.CreateClient(k, cs, cons, now)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), clientID)
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(client.KindTendermint), "client kind (07-tendermint|evm|state-lens)")
	cmd.Flags().StringVar(&clientStateFile, "client-state", "", "encoded client state file")
	cmd.Flags().StringVar(&consensusStateFile, "consensus-state", "", "encoded consensus state file")
	return cmd
}
