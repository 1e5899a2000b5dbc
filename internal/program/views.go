package program

// Derived market metrics. The dashboard program documents these as
// client-side computations over fetched accounts.

// Fee split applied on withdrawal: 1% to the creator, 1% to the platform.
const (
	creatorFeeBps  = 100
	platformFeeBps = 100
)

// OutcomePercentages returns the home/draw/away prediction shares in
// whole percent. All zeroes when the market has no participants.
func (m Market) OutcomePercentages() (home, draw, away uint8) {
	total := m.HomeCount + m.DrawCount + m.AwayCount
	if total == 0 {
		return 0, 0, 0
	}
	home = uint8(uint64(m.HomeCount) * 100 / uint64(total))
	draw = uint8(uint64(m.DrawCount) * 100 / uint64(total))
	away = uint8(uint64(m.AwayCount) * 100 / uint64(total))
	return home, draw, away
}

// PrizePoolAfterFees returns the pool left for winners after the fee
// split.
func (m Market) PrizePoolAfterFees() uint64 {
	fees := m.TotalPool*creatorFeeBps/10000 + m.TotalPool*platformFeeBps/10000
	return m.TotalPool - fees
}

// WinnerCount returns the number of participants whose prediction matches
// the resolved outcome, or 0 while unresolved.
func (m Market) WinnerCount() uint32 {
	if m.Outcome == nil {
		return 0
	}
	switch *m.Outcome {
	case OutcomeHome:
		return m.HomeCount
	case OutcomeDraw:
		return m.DrawCount
	case OutcomeAway:
		return m.AwayCount
	}
	return 0
}

// RewardPerWinner returns the per-winner payout, or 0 while unresolved or
// with no winners.
func (m Market) RewardPerWinner() uint64 {
	winners := m.WinnerCount()
	if winners == 0 {
		return 0
	}
	return m.PrizePoolAfterFees() / uint64(winners)
}

// AggregatedStats summarizes a market collection for list views.
type AggregatedStats struct {
	TotalMarkets      uint32
	OpenMarkets       uint32
	LiveMarkets       uint32
	ResolvedMarkets   uint32
	TotalParticipants uint32
	TotalVolume       uint64
}

// Aggregate computes collection-level statistics over a snapshot.
func Aggregate(markets []*Market) AggregatedStats {
	var s AggregatedStats
	for _, m := range markets {
		s.TotalMarkets++
		switch m.Status {
		case StatusOpen:
			s.OpenMarkets++
		case StatusLive:
			s.LiveMarkets++
		case StatusResolved:
			s.ResolvedMarkets++
		}
		s.TotalParticipants += m.ParticipantCount
		s.TotalVolume += m.TotalPool
	}
	return s
}
