package client

import (
	"errors"
	"fmt"

	"github.com/tendermint/lightclients/libs/log"
	"github.com/tendermint/lightclients/types"
)

// Log returns the context logger tagged with the client id.
func (ctx Context) Log() log.Logger {
	if ctx.Logger == nil {
		return log.NewNopLogger()
	}
	return ctx.Logger.With("client_id", ctx.ClientID)
}

// WithClient returns a copy of ctx operating on another client.
func (ctx Context) WithClient(clientID string, store ClientStore) Context {
	ctx.ClientID = clientID
	ctx.Store = store
	return ctx
}

// ApplyStateUpdate persists u. If a consensus state is already stored at
// u.Height nothing is written.
func ApplyStateUpdate(ctx Context, u *StateUpdate) ([]types.Height, error) {
	_, err := ctx.Store.ConsensusState(u.Height)
	switch {
	case err == nil:
		ctx.Log().Debug("consensus state already stored", "height", u.Height)
		return []types.Height{u.Height}, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	bz, err := u.ConsensusState.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal consensus state: %w", err)
	}
	if err := ctx.Store.SetConsensusState(u.Height, bz); err != nil {
		return nil, err
	}

	if u.ClientState != nil {
		bz, err := u.ClientState.Marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal client state: %w", err)
		}
		if err := ctx.Store.SetClientState(bz); err != nil {
			return nil, err
		}
	}

	return []types.Height{u.Height}, nil
}

// TimestampOutOfOrder reports whether timestamp fails to fall strictly
// between the timestamps of the nearest consensus states stored below and
// above height. decode parses a stored consensus state of the client's kind.
func TimestampOutOfOrder(ctx Context, height types.Height, timestamp uint64,
	decode func([]byte) (ConsensusState, error)) (bool, error) {

	_, prevBz, err := ctx.Store.PreviousConsensusState(height)
	switch {
	case err == nil:
		prev, err := decode(prevBz)
		if err != nil {
			return false, err
		}
		if prev.GetTimestamp() >= timestamp {
			return true, nil
		}
	case !errors.Is(err, ErrNotFound):
		return false, err
	}

	_, nextBz, err := ctx.Store.NextConsensusState(height)
	switch {
	case err == nil:
		next, err := decode(nextBz)
		if err != nil {
			return false, err
		}
		if next.GetTimestamp() <= timestamp {
			return true, nil
		}
	case !errors.Is(err, ErrNotFound):
		return false, err
	}

	return false, nil
}

// CheckSubstituteHeight returns ErrInvalidClient unless the substitute's
// latest height is above the subject's. Recovery never moves a client back.
func CheckSubstituteHeight(subject, substitute Context, subjectState, substituteState ClientState) error {
	if !substituteState.GetLatestHeight().GT(subjectState.GetLatestHeight()) {
		return fmt.Errorf("%w: substitute %s latest height %s is not above subject %s latest height %s",
			ErrInvalidClient, substitute.ClientID, substituteState.GetLatestHeight(),
			subject.ClientID, subjectState.GetLatestHeight())
	}
	return nil
}
