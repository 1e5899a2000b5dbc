// Package program encodes and decodes the wire format of the prediction
// market programs: typed account records behind a 1-byte discriminator,
// and instructions behind a fixed 8-byte discriminator, plus the seed
// recipes for every program-derived address the programs own.
package program

import (
	"cryptoscore-client/internal/pubkey"
)

// Deployed program addresses.
var (
	FactoryProgramID   = pubkey.MustFromBase58("5zADKCecxATSEsCuH5MJa1JdfXGeBLNwEYnkCbqdaYmZ")
	MarketProgramID    = pubkey.MustFromBase58("94CjfuYYswDbcjasA1PTUmHhsqFsBQC4JnsiKB8nKJhQ")
	DashboardProgramID = pubkey.MustFromBase58("DHJASkp8vNuyR5xPSyj1G66xExRjnPBUuUN4QKiTnadZ")
)

// MaxMatchIDLen bounds the match identifier in bytes on the wire.
const MaxMatchIDLen = 64

// AccountMeta is one entry of an instruction's account list. Order and
// flags are part of the wire contract.
type AccountMeta struct {
	PublicKey  pubkey.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a submittable instruction: program, ordered accounts and
// discriminator-prefixed data. Construction is pure; submission belongs to
// the external signer.
type Instruction struct {
	ProgramID pubkey.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Discriminator is the fixed 8-byte instruction tag.
type Discriminator [8]byte

// Instruction discriminators: first 8 bytes of sha256("global:<name>").
// These are part of the deployed ABI; they are pinned here as literals and
// must never be recomputed at build time.
var (
	DiscInitializeFactory = Discriminator{0xb3, 0x40, 0x4b, 0xfa, 0x27, 0xfe, 0xf0, 0xb2}
	DiscCreateMarket      = Discriminator{0x67, 0xe2, 0x61, 0xeb, 0xc8, 0xbc, 0xfb, 0xfe}
	DiscJoinMarket        = Discriminator{0x8d, 0x71, 0x57, 0x98, 0xb6, 0xd5, 0x29, 0xca}
	DiscResolveMarket     = Discriminator{0x9b, 0x17, 0x50, 0xad, 0x2e, 0x4a, 0x17, 0xef}
	DiscWithdrawRewards   = Discriminator{0x0a, 0xd6, 0xdb, 0x8b, 0xcd, 0x16, 0xfb, 0x15}
	DiscUpdateUserStats   = Discriminator{0xb6, 0x69, 0xb3, 0x40, 0xe4, 0xe2, 0x96, 0xb6}
)

// AccountKind tags the four account record variants.
type AccountKind uint8

// Account discriminators: single byte prefixing every account payload.
const (
	KindFactory     AccountKind = 0
	KindMarket      AccountKind = 1
	KindParticipant AccountKind = 2
	KindUserStats   AccountKind = 3
)

// String returns the lowercase kind name used in cache keys and logs.
func (k AccountKind) String() string {
	switch k {
	case KindFactory:
		return "factory"
	case KindMarket:
		return "market"
	case KindParticipant:
		return "participant"
	case KindUserStats:
		return "user_stats"
	default:
		return "unknown"
	}
}

// MarketStatus mirrors the on-chain market state enum.
type MarketStatus uint8

const (
	StatusOpen MarketStatus = iota
	StatusLive
	StatusResolved
	StatusCancelled
)

// String returns the status name.
func (s MarketStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusLive:
		return "live"
	case StatusResolved:
		return "resolved"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MatchOutcome mirrors the on-chain outcome enum.
type MatchOutcome uint8

const (
	OutcomeHome MatchOutcome = iota
	OutcomeDraw
	OutcomeAway
)

// String returns the outcome name.
func (o MatchOutcome) String() string {
	switch o {
	case OutcomeHome:
		return "home"
	case OutcomeDraw:
		return "draw"
	case OutcomeAway:
		return "away"
	default:
		return "unknown"
	}
}

// MarketResult is the payload enum for update-user-stats.
type MarketResult uint8

const (
	ResultWin MarketResult = iota
	ResultLoss
)
