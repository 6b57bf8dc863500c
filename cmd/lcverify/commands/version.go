package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/version"
)

var verbose bool

// VersionCmd ...
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return nil
		}
		info := version.Info{
			Version:       version.Version,
			ICS:           version.ICSVersion,
			StoreProtocol: version.StoreProtocol.Uint64(),
		}
		for _, k := range client.Kinds {
			info.ClientKinds = append(info.ClientKinds, string(k))
		}
		values, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(values))
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show protocol versions and client kinds")
}
