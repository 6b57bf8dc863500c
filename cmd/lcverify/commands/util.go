package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/router"
	"github.com/tendermint/lightclients/config"
	"github.com/tendermint/lightclients/internal/store"
)

// readInput reads a message file. "-" reads stdin.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("missing input file")
	}
	var (
		bz  []byte
		err error
	)
	if path == "-" {
		bz, err = io.ReadAll(cmd.InOrStdin())
	} else {
		bz, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return decodeArg(cmd, string(bz))
}

// decodeArg returns s as bytes, hex decoded when --hex is set.
func decodeArg(cmd *cobra.Command, s string) ([]byte, error) {
	isHex, err := cmd.Flags().GetBool(flagHex)
	if err != nil {
		return nil, err
	}
	if !isHex {
		return []byte(s), nil
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// openRouter opens the client database named in the config. The returned
// function closes it.
func openRouter(env *Env) (*router.Router, func() error, error) {
	db, err := config.DefaultDBProvider(env.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	s := store.New(db)

	var opts []router.Option
	if env.Config.Instrumentation.Prometheus {
		opts = append(opts, router.WithMetrics(router.PrometheusMetrics(env.Config.Instrumentation.Namespace)))
	}
	return router.New(s, env.Logger, opts...), s.Close, nil
}

func printEvents(w io.Writer, events []client.Event) {
	for _, ev := range events {
		attrs := make([]string, 0, len(ev.Attributes))
		for _, a := range ev.Attributes {
			attrs = append(attrs, a.Key+"="+a.Value)
		}
		fmt.Fprintf(w, "event %s %s\n", ev.Type, strings.Join(attrs, " "))
	}
}
