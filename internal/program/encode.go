package program

import (
	"cryptoscore-client/internal/borsh"
)

// Encode methods produce the discriminator-prefixed account layout. The
// programs write these buffers on chain; the client encodes them for
// fixtures and for persisting last-known-good snapshots.

// Encode serializes the factory account.
func (f Factory) Encode() []byte {
	e := borsh.NewEncoder(1 + 32 + 8 + 2 + 1)
	e.WriteU8(uint8(KindFactory))
	e.WriteFixedBytes(f.Authority[:])
	e.WriteU64(f.MarketCount)
	e.WriteU16(f.PlatformFeeBps)
	e.WriteU8(f.Bump)
	return e.Bytes()
}

// Encode serializes the market account.
func (m Market) Encode() ([]byte, error) {
	e := borsh.NewEncoder(1 + 32 + 32 + 4 + MaxMatchIDLen + 8 + 8 + 8 + 1 + 2 + 8 + 4*4 + 1 + 1)
	e.WriteU8(uint8(KindMarket))
	e.WriteFixedBytes(m.Factory[:])
	e.WriteFixedBytes(m.Creator[:])
	if err := e.WriteString(m.MatchID, MaxMatchIDLen); err != nil {
		return nil, err
	}
	e.WriteU64(m.EntryFee)
	e.WriteI64(m.KickoffTime)
	e.WriteI64(m.EndTime)
	e.WriteU8(uint8(m.Status))
	if m.Outcome != nil {
		o := uint8(*m.Outcome)
		e.WriteOptionU8(&o)
	} else {
		e.WriteOptionU8(nil)
	}
	e.WriteU64(m.TotalPool)
	e.WriteU32(m.ParticipantCount)
	e.WriteU32(m.HomeCount)
	e.WriteU32(m.DrawCount)
	e.WriteU32(m.AwayCount)
	e.WriteBool(m.IsPublic)
	e.WriteU8(m.Bump)
	return e.Bytes(), nil
}

// Encode serializes the participation account.
func (p Participant) Encode() []byte {
	e := borsh.NewEncoder(1 + 32 + 32 + 1 + 8 + 1 + 1)
	e.WriteU8(uint8(KindParticipant))
	e.WriteFixedBytes(p.Market[:])
	e.WriteFixedBytes(p.User[:])
	e.WriteU8(uint8(p.Prediction))
	e.WriteI64(p.JoinedAt)
	e.WriteBool(p.HasWithdrawn)
	e.WriteU8(p.Bump)
	return e.Bytes()
}

// Encode serializes the per-user aggregate account.
func (u UserStats) Encode() []byte {
	e := borsh.NewEncoder(1 + 32 + 4*3 + 8 + 8 + 4 + 4 + 8 + 1)
	e.WriteU8(uint8(KindUserStats))
	e.WriteFixedBytes(u.User[:])
	e.WriteU32(u.TotalMarkets)
	e.WriteU32(u.Wins)
	e.WriteU32(u.Losses)
	e.WriteU64(u.TotalWagered)
	e.WriteU64(u.TotalWon)
	e.WriteI32(u.CurrentStreak)
	e.WriteU32(u.BestStreak)
	e.WriteI64(u.LastUpdated)
	e.WriteU8(u.Bump)
	return e.Bytes()
}
