package router

import (
	"fmt"
	"time"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/internal/store"
	"github.com/tendermint/lightclients/types"
)

// maxDepth bounds how deep clients may reach into each other through the
// registry.
const maxDepth = 8

// registry implements client.Registry over one transaction.
type registry struct {
	router *Router
	tx     *store.Tx
	now    time.Time
	depth  int
}

var _ client.Registry = (*registry)(nil)

func (r *Router) begin(now time.Time) *registry {
	return &registry{router: r, tx: r.db.NewTx(), now: now}
}

// client returns the implementation and call context of clientID. The
// context's registry is one level deeper than reg.
func (reg *registry) client(clientID string) (client.LightClient, client.Context, error) {
	kind, _, err := client.ParseClientID(clientID)
	if err != nil {
		return nil, client.Context{}, err
	}
	lc, err := LightClientFor(kind)
	if err != nil {
		return nil, client.Context{}, err
	}
	ctx := client.Context{
		ClientID: clientID,
		Store:    reg.tx.ClientStore(clientID),
		Clients: &registry{
			router: reg.router,
			tx:     reg.tx,
			now:    reg.now,
			depth:  reg.depth + 1,
		},
		Now:    reg.now,
		Logger: reg.router.logger.With("kind", kind),
	}
	return lc, ctx, nil
}

func (reg *registry) VerifyMembership(clientID string, height types.Height, key, proof, value []byte) error {
	if reg.depth > maxDepth {
		return fmt.Errorf("%w: %s is nested deeper than %d clients", client.ErrInvalidClient, clientID, maxDepth)
	}
	lc, ctx, err := reg.client(clientID)
	if err != nil {
		return err
	}
	if err := checkActive(clientID, lc.Status(ctx)); err != nil {
		return err
	}
	return lc.VerifyMembership(ctx, height, key, proof, value)
}

func (reg *registry) Status(clientID string) client.Status {
	if reg.depth > maxDepth {
		return client.Unknown
	}
	lc, ctx, err := reg.client(clientID)
	if err != nil {
		return client.Unknown
	}
	return lc.Status(ctx)
}

func (reg *registry) LatestHeight(clientID string) (types.Height, error) {
	lc, cs, _, err := reg.clientState(clientID)
	if err != nil {
		return types.Height{}, err
	}
	return lc.LatestHeight(cs), nil
}

func (reg *registry) DecodeConsensusState(kind client.Kind, bz []byte) (client.ConsensusState, error) {
	lc, err := LightClientFor(kind)
	if err != nil {
		return nil, err
	}
	return lc.DecodeConsensusState(bz)
}

// clientState loads and decodes the client state of clientID.
func (reg *registry) clientState(clientID string) (client.LightClient, client.ClientState, client.Context, error) {
	lc, ctx, err := reg.client(clientID)
	if err != nil {
		return nil, nil, ctx, err
	}
	bz, err := ctx.Store.ClientState()
	if err != nil {
		return nil, nil, ctx, err
	}
	cs, err := lc.DecodeClientState(bz)
	if err != nil {
		return nil, nil, ctx, err
	}
	return lc, cs, ctx, nil
}

// checkActive turns a non-active status into the error of its kind.
func checkActive(clientID string, status client.Status) error {
	switch status {
	case client.Active:
		return nil
	case client.Frozen:
		return fmt.Errorf("%w: %s", client.ErrFrozen, clientID)
	case client.Expired:
		return fmt.Errorf("%w: %s", client.ErrExpired, clientID)
	default:
		return fmt.Errorf("%w: %s", client.ErrClientNotFound, clientID)
	}
}
