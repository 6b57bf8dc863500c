package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/router"
	"github.com/tendermint/lightclients/types"
)

// maxStatusQueries bounds the clients queried at once.
const maxStatusQueries = 8

type clientStatus struct {
	ClientID     string
	Status       client.Status
	LatestHeight types.Height
	ChainID      string
	Timestamp    time.Time
}

// MakeStatusCommand returns the command that reports the status of stored
// clients.
func MakeStatusCommand(env *Env) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status [client-id...]",
		Short: "Show the status of all or the given clients",
		Long: `Show the status of all or the given clients.

With --interval the status is refreshed until interrupted, and the
client_status metric is served when instrumentation is enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeDB, err := openRouter(env)
			if err != nil {
				return err
			}
			defer closeDB()

			if interval <= 0 {
				now, err := hostTime(cmd)
				if err != nil {
					return err
				}
				return printStatus(cmd.Context(), cmd.OutOrStdout(), r, args, now)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watchStatus(ctx, env, cmd.OutOrStdout(), r, args, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh period; zero prints once")
	return cmd
}

func printStatus(ctx context.Context, w io.Writer, r *router.Router, clientIDs []string, now time.Time) error {
	statuses, err := queryStatus(ctx, r, clientIDs, now)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT\tSTATUS\tHEIGHT\tCHAIN\tTIMESTAMP")
	for _, s := range statuses {
		ts := "-"
		if !s.Timestamp.IsZero() {
			ts = s.Timestamp.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%s\n", s.ClientID, s.Status, s.LatestHeight, s.ChainID, ts)
	}
	return tw.Flush()
}

// queryStatus reads the clients concurrently. The result keeps the order of
// clientIDs, or of the store when none are given.
func queryStatus(ctx context.Context, r *router.Router, clientIDs []string, now time.Time) ([]clientStatus, error) {
	if len(clientIDs) == 0 {
		ids, err := r.Clients()
		if err != nil {
			return nil, err
		}
		clientIDs = ids
	}

	statuses := make([]clientStatus, len(clientIDs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxStatusQueries)
	for i, id := range clientIDs {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := clientStatus{ClientID: id, Status: r.Status(id, now)}
			if s.Status == client.Unknown {
				statuses[i] = s
				return nil
			}
			var err error
			if s.LatestHeight, err = r.LatestHeight(id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			if s.ChainID, err = r.CounterpartyChainID(id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			ts, err := r.TimestampAtHeight(id, s.LatestHeight)
			if err != nil && !errors.Is(err, client.ErrConsensusStateNotFound) {
				return fmt.Errorf("%s: %w", id, err)
			}
			if err == nil {
				s.Timestamp = time.Unix(0, int64(ts))
			}
			statuses[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func watchStatus(ctx context.Context, env *Env, w io.Writer, r *router.Router, clientIDs []string, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	if instr := env.Config.Instrumentation; instr.Prometheus {
		srv := &http.Server{
			Addr:              instr.PrometheusListenAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			env.Logger.Info("serving metrics", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := printStatus(ctx, w, r, clientIDs, time.Now()); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	return g.Wait()
}
