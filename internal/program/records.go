package program

import (
	"fmt"

	"cryptoscore-client/internal/borsh"
	"cryptoscore-client/internal/pubkey"
)

// Record is the sum over the four account variants. The concrete types
// are immutable value records; an update replaces the record, never
// mutates it in place.
type Record interface {
	Kind() AccountKind
}

// Factory is the collection-level singleton account.
type Factory struct {
	Authority      pubkey.PublicKey
	MarketCount    uint64
	PlatformFeeBps uint16
	Bump           uint8
}

// Kind implements Record.
func (Factory) Kind() AccountKind { return KindFactory }

// Market is the per-match market account.
type Market struct {
	Factory          pubkey.PublicKey
	Creator          pubkey.PublicKey
	MatchID          string
	EntryFee         uint64
	KickoffTime      int64
	EndTime          int64
	Status           MarketStatus
	Outcome          *MatchOutcome
	TotalPool        uint64
	ParticipantCount uint32
	HomeCount        uint32
	DrawCount        uint32
	AwayCount        uint32
	IsPublic         bool
	Bump             uint8
}

// Kind implements Record.
func (Market) Kind() AccountKind { return KindMarket }

// Participant is the per-(market,user) participation record.
type Participant struct {
	Market       pubkey.PublicKey
	User         pubkey.PublicKey
	Prediction   MatchOutcome
	JoinedAt     int64
	HasWithdrawn bool
	Bump         uint8
}

// Kind implements Record.
func (Participant) Kind() AccountKind { return KindParticipant }

// UserStats is the per-user aggregate account.
type UserStats struct {
	User          pubkey.PublicKey
	TotalMarkets  uint32
	Wins          uint32
	Losses        uint32
	TotalWagered  uint64
	TotalWon      uint64
	CurrentStreak int32
	BestStreak    uint32
	LastUpdated   int64
	Bump          uint8
}

// Kind implements Record.
func (UserStats) Kind() AccountKind { return KindUserStats }

// PeekDiscriminator returns the leading discriminator byte, or false for
// an empty buffer.
func PeekDiscriminator(data []byte) (AccountKind, bool) {
	if len(data) == 0 {
		return 0, false
	}
	return AccountKind(data[0]), true
}

// HasDiscriminator reports whether the buffer starts with the given
// kind's discriminator. Cheap pre-filter for bulk scans; does not decode.
func HasDiscriminator(data []byte, kind AccountKind) bool {
	got, ok := PeekDiscriminator(data)
	return ok && got == kind
}

// checkDiscriminator consumes nothing from data; it only classifies the
// leading byte against want.
func checkDiscriminator(data []byte, want AccountKind) error {
	got, ok := PeekDiscriminator(data)
	if !ok {
		return fmt.Errorf("%w: empty buffer", borsh.ErrTruncated)
	}
	if got == want {
		return nil
	}
	switch got {
	case KindFactory, KindMarket, KindParticipant, KindUserStats:
		return fmt.Errorf("%w: expected %s (0x%02x), got %s (0x%02x)",
			ErrWrongDiscriminator, want, uint8(want), got, uint8(got))
	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnknownDiscriminator, uint8(got))
	}
}

// DecodeFactory decodes a factory account. Trailing zero padding from the
// fixed on-chain allocation is tolerated.
func DecodeFactory(data []byte) (*Factory, error) {
	if err := checkDiscriminator(data, KindFactory); err != nil {
		return nil, err
	}
	d := borsh.NewDecoder(data[1:])

	var f Factory
	var err error
	if f.Authority, err = readPubkey(d); err != nil {
		return nil, err
	}
	if f.MarketCount, err = d.ReadU64(); err != nil {
		return nil, err
	}
	if f.PlatformFeeBps, err = d.ReadU16(); err != nil {
		return nil, err
	}
	if f.Bump, err = d.ReadU8(); err != nil {
		return nil, err
	}
	return &f, nil
}

// DecodeMarket decodes a market account.
func DecodeMarket(data []byte) (*Market, error) {
	if err := checkDiscriminator(data, KindMarket); err != nil {
		return nil, err
	}
	d := borsh.NewDecoder(data[1:])

	var m Market
	var err error
	if m.Factory, err = readPubkey(d); err != nil {
		return nil, err
	}
	if m.Creator, err = readPubkey(d); err != nil {
		return nil, err
	}
	if m.MatchID, err = d.ReadString(MaxMatchIDLen); err != nil {
		return nil, err
	}
	if m.EntryFee, err = d.ReadU64(); err != nil {
		return nil, err
	}
	if m.KickoffTime, err = d.ReadI64(); err != nil {
		return nil, err
	}
	if m.EndTime, err = d.ReadI64(); err != nil {
		return nil, err
	}
	status, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	if status > uint8(StatusCancelled) {
		return nil, fmt.Errorf("%w: invalid market status %d", borsh.ErrSchemaMismatch, status)
	}
	m.Status = MarketStatus(status)
	outcome, err := d.ReadOptionU8()
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		if *outcome > uint8(OutcomeAway) {
			return nil, fmt.Errorf("%w: invalid outcome %d", borsh.ErrSchemaMismatch, *outcome)
		}
		o := MatchOutcome(*outcome)
		m.Outcome = &o
	}
	if m.TotalPool, err = d.ReadU64(); err != nil {
		return nil, err
	}
	if m.ParticipantCount, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if m.HomeCount, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if m.DrawCount, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if m.AwayCount, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if m.IsPublic, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if m.Bump, err = d.ReadU8(); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeParticipant decodes a participation account.
func DecodeParticipant(data []byte) (*Participant, error) {
	if err := checkDiscriminator(data, KindParticipant); err != nil {
		return nil, err
	}
	d := borsh.NewDecoder(data[1:])

	var p Participant
	var err error
	if p.Market, err = readPubkey(d); err != nil {
		return nil, err
	}
	if p.User, err = readPubkey(d); err != nil {
		return nil, err
	}
	prediction, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	if prediction > uint8(OutcomeAway) {
		return nil, fmt.Errorf("%w: invalid prediction %d", borsh.ErrSchemaMismatch, prediction)
	}
	p.Prediction = MatchOutcome(prediction)
	if p.JoinedAt, err = d.ReadI64(); err != nil {
		return nil, err
	}
	if p.HasWithdrawn, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if p.Bump, err = d.ReadU8(); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeUserStats decodes a per-user aggregate account.
func DecodeUserStats(data []byte) (*UserStats, error) {
	if err := checkDiscriminator(data, KindUserStats); err != nil {
		return nil, err
	}
	d := borsh.NewDecoder(data[1:])

	var u UserStats
	var err error
	if u.User, err = readPubkey(d); err != nil {
		return nil, err
	}
	if u.TotalMarkets, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if u.Wins, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if u.Losses, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if u.TotalWagered, err = d.ReadU64(); err != nil {
		return nil, err
	}
	if u.TotalWon, err = d.ReadU64(); err != nil {
		return nil, err
	}
	if u.CurrentStreak, err = d.ReadI32(); err != nil {
		return nil, err
	}
	if u.BestStreak, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if u.LastUpdated, err = d.ReadI64(); err != nil {
		return nil, err
	}
	if u.Bump, err = d.ReadU8(); err != nil {
		return nil, err
	}
	return &u, nil
}

// DecodeAccount dispatches on the discriminator byte into the Record sum.
func DecodeAccount(data []byte) (Record, error) {
	kind, ok := PeekDiscriminator(data)
	if !ok {
		return nil, fmt.Errorf("%w: empty buffer", borsh.ErrTruncated)
	}
	switch kind {
	case KindFactory:
		r, err := DecodeFactory(data)
		if err != nil {
			return nil, err
		}
		return *r, nil
	case KindMarket:
		r, err := DecodeMarket(data)
		if err != nil {
			return nil, err
		}
		return *r, nil
	case KindParticipant:
		r, err := DecodeParticipant(data)
		if err != nil {
			return nil, err
		}
		return *r, nil
	case KindUserStats:
		r, err := DecodeUserStats(data)
		if err != nil {
			return nil, err
		}
		return *r, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownDiscriminator, uint8(kind))
	}
}

func readPubkey(d *borsh.Decoder) (pubkey.PublicKey, error) {
	b, err := d.ReadFixedBytes(pubkey.Size)
	if err != nil {
		return pubkey.PublicKey{}, err
	}
	return pubkey.FromBytes(b)
}
