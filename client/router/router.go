// Package router is the host entry point of the light clients. It selects
// the implementation of a client from its kind and runs every operation in
// one store transaction, committed only when the operation succeeds.
package router

import (
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/evm"
	"github.com/tendermint/lightclients/client/statelens"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/internal/store"
	"github.com/tendermint/lightclients/libs/log"
	"github.com/tendermint/lightclients/types"
)

// Events emitted by the router.
const (
	EventTypeCreateClient       = "create_client"
	EventTypeUpdateClient       = "update_client"
	EventTypeSubmitMisbehaviour = "client_misbehaviour"

	AttributeKeyClientID        = "client_id"
	AttributeKeyClientType      = "client_type"
	AttributeKeyConsensusHeight = "consensus_height"
)

// operation labels
const (
	opCreateClient        = "create_client"
	opUpdateClient        = "update_client"
	opSubmitMisbehaviour  = "submit_misbehaviour"
	opVerifyMembership    = "verify_membership"
	opVerifyNonMembership = "verify_non_membership"
	opRecoverClient       = "recover_client"
	opUpgradeClient       = "upgrade_client"
)

// LightClientFor returns the implementation of kind.
func LightClientFor(kind client.Kind) (client.LightClient, error) {
	switch kind {
	case client.KindTendermint:
		return tendermint.LightClient{}, nil
	case client.KindEVM:
		return evm.LightClient{}, nil
	case client.KindStateLens:
		return statelens.LightClient{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", client.ErrUnknownKind, string(kind))
	}
}

// Router serves the clients stored in one database. Calls on the same
// client id must be serialized by the caller.
type Router struct {
	db      *store.Store
	logger  log.Logger
	metrics *Metrics
}

// Option sets an optional parameter on the Router.
type Option func(*Router)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(r *Router) { r.metrics = metrics }
}

// New returns a Router over db.
func New(db *store.Store, logger log.Logger, options ...Option) *Router {
	r := &Router{
		db:      db,
		logger:  logger,
		metrics: NopMetrics(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Clients returns the ids of all stored clients.
func (r *Router) Clients() ([]string, error) {
	return r.db.ClientIDs()
}

// CreateClient verifies and stores a new client of kind and returns its id.
func (r *Router) CreateClient(kind client.Kind, clientState, consensusState []byte, now time.Time) (clientID string, events []client.Event, err error) {
	defer r.observe(kind, opCreateClient, time.Now(), &err)

	lc, err := LightClientFor(kind)
	if err != nil {
		return "", nil, err
	}
	cs, err := lc.DecodeClientState(clientState)
	if err != nil {
		return "", nil, client.Wrap(client.ErrDecode, err)
	}
	cons, err := lc.DecodeConsensusState(consensusState)
	if err != nil {
		return "", nil, client.Wrap(client.ErrDecode, err)
	}

	reg := r.begin(now)
	defer reg.tx.Discard()

	seq, err := reg.tx.NextClientSequence()
	if err != nil {
		return "", nil, err
	}
	clientID = kind.ClientID(seq)
	_, ctx, err := reg.client(clientID)
	if err != nil {
		return "", nil, err
	}
	if _, err := ctx.Store.ClientState(); err == nil {
		return "", nil, fmt.Errorf("%w: %s", client.ErrClientExists, clientID)
	}

	res, err := lc.VerifyCreation(ctx, cs, cons)
	if err != nil {
		ctx.Log().Info("client creation rejected", "err", err)
		return "", nil, err
	}

	height := lc.LatestHeight(cs)
	bz, err := cs.Marshal()
	if err != nil {
		return "", nil, err
	}
	if err := ctx.Store.SetClientState(bz); err != nil {
		return "", nil, err
	}
	if bz, err = cons.Marshal(); err != nil {
		return "", nil, err
	}
	if err := ctx.Store.SetConsensusState(height, bz); err != nil {
		return "", nil, err
	}
	if err := reg.tx.SetNextClientSequence(seq + 1); err != nil {
		return "", nil, err
	}
	if err := reg.tx.Commit(); err != nil {
		return "", nil, err
	}

	ctx.Log().Info("created client", "height", height)
	ev := clientEvent(EventTypeCreateClient, clientID, kind)
	ev.Attributes = append(ev.Attributes, client.EventAttribute{Key: AttributeKeyConsensusHeight, Value: height.String()})
	return clientID, append(res.Events, ev), nil
}

// UpdateResult is the outcome of UpdateClient.
type UpdateResult struct {
	Heights []types.Height
	// Frozen is set when the header conflicted with stored consensus states
	// and froze the client.
	Frozen bool
	Events []client.Event
}

// UpdateClient verifies a header and stores the state it proves. A header
// that conflicts with stored consensus states freezes the client instead,
// or is rejected by clients that cannot be frozen.
func (r *Router) UpdateClient(clientID string, msg []byte, now time.Time) (res *UpdateResult, err error) {
	defer r.observe(kindOf(clientID), opUpdateClient, time.Now(), &err)

	reg := r.begin(now)
	defer reg.tx.Discard()

	lc, ctx, err := reg.client(clientID)
	if err != nil {
		return nil, err
	}

	if err := checkActive(clientID, lc.Status(ctx)); err != nil {
		return nil, err
	}
	m, err := lc.DecodeClientMessage(msg)
	if err != nil {
		return nil, client.Wrap(client.ErrDecode, err)
	}
	update, err := lc.VerifyHeader(ctx, m)
	if err != nil {
		ctx.Log().Info("header rejected", "err", err)
		return nil, err
	}

	misbehaving, err := lc.CheckForMisbehaviour(ctx, m)
	if err != nil {
		return nil, err
	}
	if misbehaving {
		err := lc.UpdateStateOnMisbehaviour(ctx, m)
		if errors.Is(err, client.ErrUnimplemented) {
			return nil, fmt.Errorf("%w: header at %v conflicts with stored consensus states", client.ErrVerificationFailed, update.Height)
		}
		if err != nil {
			return nil, err
		}
		if err := reg.tx.Commit(); err != nil {
			return nil, err
		}
		r.metrics.Frozen.With("kind", string(lc.Kind())).Add(1)
		ctx.Log().Error("client frozen by conflicting header", "height", update.Height)
		return &UpdateResult{
			Frozen: true,
			Events: []client.Event{clientEvent(EventTypeSubmitMisbehaviour, clientID, lc.Kind())},
		}, nil
	}

	_, err = ctx.Store.ConsensusState(update.Height)
	stored := err == nil
	heights, err := lc.UpdateState(ctx, m)
	if err != nil {
		return nil, err
	}
	if err := reg.tx.Commit(); err != nil {
		return nil, err
	}

	res = &UpdateResult{Heights: heights}
	if stored && update.ClientState == nil {
		ctx.Log().Debug("header already applied", "height", update.Height)
		return res, nil
	}
	ev := clientEvent(EventTypeUpdateClient, clientID, lc.Kind())
	for _, h := range heights {
		ev.Attributes = append(ev.Attributes, client.EventAttribute{Key: AttributeKeyConsensusHeight, Value: h.String()})
	}
	res.Events = []client.Event{ev}
	ctx.Log().Info("updated client", "height", update.Height)
	return res, nil
}

func clientEvent(typ, clientID string, kind client.Kind) client.Event {
	return client.Event{
		Type: typ,
		Attributes: []client.EventAttribute{
			{Key: AttributeKeyClientID, Value: clientID},
			{Key: AttributeKeyClientType, Value: string(kind)},
		},
	}
}

// SubmitMisbehaviour verifies misbehaviour evidence and freezes the client.
func (r *Router) SubmitMisbehaviour(clientID string, msg []byte, now time.Time) (err error) {
	defer r.observe(kindOf(clientID), opSubmitMisbehaviour, time.Now(), &err)

	reg := r.begin(now)
	defer reg.tx.Discard()

	lc, ctx, err := reg.client(clientID)
	if err != nil {
		return err
	}

	if err := checkActive(clientID, lc.Status(ctx)); err != nil {
		return err
	}
	m, err := lc.DecodeClientMessage(msg)
	if err != nil {
		return client.Wrap(client.ErrDecode, err)
	}
	if err := lc.VerifyMisbehaviour(ctx, m); err != nil {
		ctx.Log().Info("misbehaviour rejected", "err", err)
		return err
	}
	if err := lc.UpdateStateOnMisbehaviour(ctx, m); err != nil {
		return err
	}
	if err := reg.tx.Commit(); err != nil {
		return err
	}
	r.metrics.Frozen.With("kind", string(lc.Kind())).Add(1)
	ctx.Log().Error("client frozen by misbehaviour")
	return nil
}

// VerifyMembership verifies that value is stored under key in the state of
// the client's counterparty at height.
func (r *Router) VerifyMembership(clientID string, height types.Height, key, proof, value []byte, now time.Time) (err error) {
	defer r.observe(kindOf(clientID), opVerifyMembership, time.Now(), &err)

	reg := r.begin(now)
	defer reg.tx.Discard()

	if _, _, err := reg.client(clientID); err != nil {
		return err
	}

	return reg.VerifyMembership(clientID, height, key, proof, value)
}

// VerifyNonMembership verifies that nothing is stored under key in the
// state of the client's counterparty at height.
func (r *Router) VerifyNonMembership(clientID string, height types.Height, key, proof []byte, now time.Time) (err error) {
	defer r.observe(kindOf(clientID), opVerifyNonMembership, time.Now(), &err)

	reg := r.begin(now)
	defer reg.tx.Discard()

	lc, ctx, err := reg.client(clientID)
	if err != nil {
		return err
	}

	if err := checkActive(clientID, lc.Status(ctx)); err != nil {
		return err
	}
	return lc.VerifyNonMembership(ctx, height, key, proof)
}

// Status returns the status of the client at now.
func (r *Router) Status(clientID string, now time.Time) client.Status {
	reg := r.begin(now)
	defer reg.tx.Discard()

	status := reg.Status(clientID)
	for _, s := range []client.Status{client.Active, client.Frozen, client.Expired, client.Unknown} {
		v := 0.0
		if s == status {
			v = 1
		}
		r.metrics.ClientStatus.With("client_id", clientID, "status", s.String()).Set(v)
	}
	return status
}

// TimestampAtHeight returns the timestamp (unix ns) of the consensus state
// stored at height.
func (r *Router) TimestampAtHeight(clientID string, height types.Height) (uint64, error) {
	reg := r.begin(time.Time{})
	defer reg.tx.Discard()

	lc, ctx, err := reg.client(clientID)
	if err != nil {
		return 0, err
	}
	bz, err := ctx.Store.ConsensusState(height)
	if err != nil {
		return 0, err
	}
	cons, err := lc.DecodeConsensusState(bz)
	if err != nil {
		return 0, err
	}
	return lc.Timestamp(cons), nil
}

// LatestHeight returns the latest height of the client.
func (r *Router) LatestHeight(clientID string) (types.Height, error) {
	reg := r.begin(time.Time{})
	defer reg.tx.Discard()

	return reg.LatestHeight(clientID)
}

// CounterpartyChainID returns the chain id of the client's counterparty.
func (r *Router) CounterpartyChainID(clientID string) (string, error) {
	reg := r.begin(time.Time{})
	defer reg.tx.Discard()

	lc, cs, _, err := reg.clientState(clientID)
	if err != nil {
		return "", err
	}
	return lc.CounterpartyChainID(cs), nil
}

// RecoverClient replaces the trusted state of a frozen or expired subject
// client with that of an active substitute of the same kind.
func (r *Router) RecoverClient(subjectID, substituteID string, now time.Time) (err error) {
	defer r.observe(kindOf(subjectID), opRecoverClient, time.Now(), &err)

	reg := r.begin(now)
	defer reg.tx.Discard()

	lc, subject, err := reg.client(subjectID)
	if err != nil {
		return err
	}

	subLC, substitute, err := reg.client(substituteID)
	if err != nil {
		return err
	}
	if subLC.Kind() != lc.Kind() {
		return fmt.Errorf("%w: substitute %s is a %s client, subject %s is a %s client",
			client.ErrInvalidClient, substituteID, subLC.Kind(), subjectID, lc.Kind())
	}
	switch status := lc.Status(subject); status {
	case client.Frozen, client.Expired:
	default:
		return fmt.Errorf("%w: subject %s is %s", client.ErrInvalidClient, subjectID, status)
	}
	if status := subLC.Status(substitute); status != client.Active {
		return fmt.Errorf("%w: substitute %s is %s", client.ErrInvalidClient, substituteID, status)
	}

	if err := lc.MigrateClientStore(subject, substitute); err != nil {
		return err
	}
	if err := reg.tx.Commit(); err != nil {
		return err
	}
	subject.Log().Info("recovered client", "substitute", substituteID)
	return nil
}

// UpgradeClient verifies the upgraded client and consensus states committed
// by the counterparty before an upgrade.
func (r *Router) UpgradeClient(clientID string, upgradedClient, upgradedConsensus, proofClient, proofConsensus []byte, now time.Time) (err error) {
	defer r.observe(kindOf(clientID), opUpgradeClient, time.Now(), &err)

	reg := r.begin(now)
	defer reg.tx.Discard()

	lc, ctx, err := reg.client(clientID)
	if err != nil {
		return err
	}

	if err := checkActive(clientID, lc.Status(ctx)); err != nil {
		return err
	}
	if err := lc.VerifyUpgrade(ctx, upgradedClient, upgradedConsensus, proofClient, proofConsensus); err != nil {
		return err
	}
	if err := reg.tx.Commit(); err != nil {
		return err
	}
	ctx.Log().Info("upgraded client")
	return nil
}

// observe records the duration and outcome of op. It is deferred with a
// pointer to the named error result.
func (r *Router) observe(kind client.Kind, op string, start time.Time, err *error) {
	r.metrics.VerificationSeconds.With("kind", string(kind), "operation", op).Observe(time.Since(start).Seconds())
	r.metrics.Verifications.With("kind", string(kind), "operation", op, "result", resultLabel(*err)).Add(1)
}

// kindOf returns the kind encoded in clientID, for labelling operations on
// clients that may not exist.
func kindOf(clientID string) client.Kind {
	kind, _, err := client.ParseClientID(clientID)
	if err != nil {
		return "unknown"
	}
	return kind
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch client.KindOf(err) {
	case client.ErrNotFound:
		return "not_found"
	case client.ErrDecode:
		return "decode"
	case client.ErrInvalidPath:
		return "invalid_path"
	case client.ErrInvalidCommitmentKeyLength:
		return "invalid_commitment_key_length"
	case client.ErrVerificationFailed:
		return "verification_failed"
	case client.ErrFrozen:
		return "frozen"
	case client.ErrExpired:
		return "expired"
	case client.ErrUnimplemented:
		return "unimplemented"
	case client.ErrInvalidHeader:
		return "invalid_header"
	case client.ErrInvalidClient:
		return "invalid_client"
	default:
		return "error"
	}
}
