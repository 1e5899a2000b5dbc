package program

import (
	"cryptoscore-client/internal/pubkey"
)

// Seed recipes. Seed order and content are part of the wire contract: any
// deviation produces an address the deployed programs will never match.
// One canonical recipe exists per account kind.

// DeriveFactory derives the factory singleton: seeds = ["factory"], owned
// by the factory program.
func DeriveFactory() (pubkey.PublicKey, uint8, error) {
	return pubkey.FindProgramAddress([][]byte{[]byte("factory")}, FactoryProgramID)
}

// DeriveMarket derives the per-match market account:
// seeds = ["market", factory, matchID], owned by the market program.
func DeriveMarket(factory pubkey.PublicKey, matchID string) (pubkey.PublicKey, uint8, error) {
	return pubkey.FindProgramAddress([][]byte{
		[]byte("market"),
		factory[:],
		[]byte(matchID),
	}, MarketProgramID)
}

// DeriveParticipant derives the per-(market,user) participation record:
// seeds = ["participant", market, user], owned by the market program.
func DeriveParticipant(market, user pubkey.PublicKey) (pubkey.PublicKey, uint8, error) {
	return pubkey.FindProgramAddress([][]byte{
		[]byte("participant"),
		market[:],
		user[:],
	}, MarketProgramID)
}

// DeriveUserStats derives the per-user aggregate account:
// seeds = ["user_stats", user], owned by the dashboard program.
func DeriveUserStats(user pubkey.PublicKey) (pubkey.PublicKey, uint8, error) {
	return pubkey.FindProgramAddress([][]byte{
		[]byte("user_stats"),
		user[:],
	}, DashboardProgramID)
}
