package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightclients/types"
)

type proofFlags struct {
	height    string
	key       string
	proofFile string
}

func (f *proofFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.height, "height", "", "proof height as {revision}-{height}")
	cmd.Flags().StringVar(&f.key, "key", "", "key, relative to the client's key prefix")
	cmd.Flags().StringVar(&f.proofFile, "proof", "", "encoded proof file")
}

func (f *proofFlags) parse(cmd *cobra.Command) (height types.Height, key, proof []byte, err error) {
	if height, err = types.ParseHeight(f.height); err != nil {
		return types.Height{}, nil, nil, err
	}
	if key, err = decodeArg(cmd, f.key); err != nil {
		return types.Height{}, nil, nil, fmt.Errorf("key: %w", err)
	}
	if proof, err = readInput(cmd, f.proofFile); err != nil {
		return types.Height{}, nil, nil, fmt.Errorf("proof: %w", err)
	}
	return height, key, proof, nil
}

// MakeVerifyMembershipCommand returns the command that verifies a
// membership proof against a stored consensus state.
func MakeVerifyMembershipCommand(env *Env) *cobra.Command {
	var (
		pf        proofFlags
		valueFile string
	)

	cmd := &cobra.Command{
		Use:   "verify-membership [client-id]",
		Short: "Verify that the counterparty stores a value under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := hostTime(cmd)
			if err != nil {
				return err
			}
			height, key, proof, err := pf.parse(cmd)
			if err != nil {
				return err
			}
			value, err := readInput(cmd, valueFile)
			if err != nil {
				return fmt.Errorf("value: %w", err)
			}

			r, closeDB, err := openRouter(env)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := r.VerifyMembership(args[0], height, key, proof, value, now); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "verified")
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&valueFile, "value", "", "expected value file")
	return cmd
}

// MakeVerifyNonMembershipCommand returns the command that verifies a
// non-membership proof against a stored consensus state.
func MakeVerifyNonMembershipCommand(env *Env) *cobra.Command {
	var pf proofFlags

	cmd := &cobra.Command{
		Use:   "verify-non-membership [client-id]",
		Short: "Verify that the counterparty stores nothing under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := hostTime(cmd)
			if err != nil {
				return err
			}
			height, key, proof, err := pf.parse(cmd)
			if err != nil {
				return err
			}

			r, closeDB, err := openRouter(env)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := r.VerifyNonMembership(args[0], height, key, proof, now); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "verified")
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}
