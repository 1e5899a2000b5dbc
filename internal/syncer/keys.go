package syncer

import "cryptoscore-client/internal/pubkey"

// KeyMarkets is the list-level cache key covering every market.
const KeyMarkets = "markets"

// KeyMarket returns the detail cache key for one market.
func KeyMarket(addr pubkey.PublicKey) string {
	return "market:" + addr.String()
}

// KeyUser returns the user-scoped cache key.
func KeyUser(addr pubkey.PublicKey) string {
	return "user:" + addr.String()
}
