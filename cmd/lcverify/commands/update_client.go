package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MakeUpdateClientCommand returns the command that verifies a header, or
// misbehaviour evidence, against a stored client.
func MakeUpdateClientCommand(env *Env) *cobra.Command {
	var (
		headerFile   string
		misbehaviour bool
	)

	cmd := &cobra.Command{
		Use:   "update-client [client-id]",
		Short: "Verify a header and store the consensus state it proves",
		Long: `Verify a header and store the consensus state it proves.

With --misbehaviour the input is misbehaviour evidence; the client is frozen
when the evidence verifies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID := args[0]
			now, err := hostTime(cmd)
			if err != nil {
				return err
			}
			msg, err := readInput(cmd, headerFile)
			if err != nil {
				return err
			}

			r, closeDB, err := openRouter(env)
			if err != nil {
				return err
			}
			defer closeDB()

			out := cmd.OutOrStdout()
			if misbehaviour {
				if err := r.SubmitMisbehaviour(clientID, msg, now); err != nil {
					return err
				}
				fmt.Fprintf(out, "frozen %s\n", clientID)
				return nil
			}

			res, err := r.UpdateClient(clientID, msg, now)
			if err != nil {
				return err
			}
			if res.Frozen {
				fmt.Fprintf(out, "frozen %s\n", clientID)
			}
			for _, h := range res.Heights {
				fmt.Fprintf(out, "consensus_height %v\n", h)
			}
			printEvents(out, res.Events)
			return nil
		},
	}
	cmd.Flags().StringVar(&headerFile, "header", "", "encoded client message file")
	cmd.Flags().BoolVar(&misbehaviour, "misbehaviour", false, "the input is misbehaviour evidence")
	return cmd
}
