package rpc

import (
	"context"

	"cryptoscore-client/internal/pubkey"
)

// Commitment is the confidence level chain state must reach before it is
// reported.
type Commitment string

// Supported commitment levels.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// AccountInfo is a fetched account: raw data bytes plus ownership
// metadata.
type AccountInfo struct {
	Lamports   uint64
	Owner      pubkey.PublicKey
	Data       []byte
	Executable bool
	Slot       uint64
}

// KeyedAccount pairs an account with its address, as returned by
// program-wide scans.
type KeyedAccount struct {
	Pubkey  pubkey.PublicKey
	Account AccountInfo
}

// AccountUpdate is one push notification for a watched address.
type AccountUpdate struct {
	Slot     uint64
	Lamports uint64
	Owner    pubkey.PublicKey
	Data     []byte
}

// MaxMultipleAccounts is the node-side cap on one getMultipleAccounts
// batch; larger requests are rejected whole.
const MaxMultipleAccounts = 100

// Client is the read/submit surface of a remote node over HTTP.
type Client interface {
	// GetAccountInfo fetches one account; returns nil if it does not exist.
	GetAccountInfo(ctx context.Context, pk pubkey.PublicKey, commitment Commitment) (*AccountInfo, error)

	// GetMultipleAccounts fetches up to MaxMultipleAccounts accounts in
	// one round trip. Missing accounts yield nil entries at their position.
	GetMultipleAccounts(ctx context.Context, pks []pubkey.PublicKey, commitment Commitment) ([]*AccountInfo, error)

	// GetProgramAccounts scans every account owned by a program.
	GetProgramAccounts(ctx context.Context, program pubkey.PublicKey, commitment Commitment) ([]KeyedAccount, error)

	// GetSlot returns the current slot at the given commitment.
	GetSlot(ctx context.Context, commitment Commitment) (uint64, error)

	// GetHealth performs a lightweight liveness round trip.
	GetHealth(ctx context.Context) error

	// SendTransaction submits a signed, serialized transaction and
	// returns its signature. No automatic retry: resubmitting a
	// state-mutating call silently is unsafe.
	SendTransaction(ctx context.Context, signedTx []byte) (string, error)
}

// AccountStream is the push surface of a remote node over WebSocket. One
// stream maps to one transport connection; Done is closed when the
// connection dies, at which point every subscription channel is closed
// and the owner must dial a fresh stream.
type AccountStream interface {
	// SubscribeAccount opens a push channel for one address.
	SubscribeAccount(ctx context.Context, pk pubkey.PublicKey, commitment Commitment) (id int64, updates <-chan AccountUpdate, err error)

	// UnsubscribeAccount releases one subscription and closes its channel.
	UnsubscribeAccount(ctx context.Context, id int64) error

	// Done is closed when the underlying connection is lost or closed.
	Done() <-chan struct{}

	// Close tears down the connection and every open subscription.
	Close() error
}
