package program

import (
	"strings"
	"testing"
)

func TestDeriveFactory_Singleton(t *testing.T) {
	addr1, bump1, err := DeriveFactory()
	if err != nil {
		t.Fatalf("DeriveFactory: %v", err)
	}
	addr2, bump2, err := DeriveFactory()
	if err != nil {
		t.Fatal(err)
	}
	if !addr1.Equals(addr2) || bump1 != bump2 {
		t.Error("factory derivation must be deterministic")
	}
	if addr1.IsOnCurve() {
		t.Error("factory address must be off-curve")
	}
}

func TestDeriveMarket_PerMatch(t *testing.T) {
	a, _, err := DeriveMarket(testFactory, "EPL-2024-123")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := DeriveMarket(testFactory, "EPL-2024-124")
	if err != nil {
		t.Fatal(err)
	}
	if a.Equals(b) {
		t.Error("different match ids must derive different markets")
	}
}

func TestDeriveMarket_MatchIDSeedBoundTighterThanWireBound(t *testing.T) {
	// A 33..64 byte match id fits the instruction payload but exceeds the
	// per-seed limit, so the market address cannot be derived from it.
	matchID := strings.Repeat("x", 40)

	ins, err := NewCreateMarket(CreateMarketParams{
		MatchID:     matchID,
		EntryFee:    1_000_000_000,
		KickoffTime: 1_700_003_600,
		EndTime:     1_700_007_200,
	}, CreateMarketAccounts{Market: testUser, Factory: testFactory, Creator: testCreator})
	if err != nil {
		t.Fatalf("NewCreateMarket must accept a %d-byte match id: %v", len(matchID), err)
	}
	if ins == nil {
		t.Fatal("expected an instruction")
	}

	if _, _, err := DeriveMarket(testFactory, matchID); err == nil {
		t.Errorf("expected derivation failure for a %d-byte match id seed", len(matchID))
	}
}

func TestDeriveParticipant_PerMarketUser(t *testing.T) {
	market, _, err := DeriveMarket(testFactory, "EPL-2024-123")
	if err != nil {
		t.Fatal(err)
	}
	a, _, err := DeriveParticipant(market, testUser)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := DeriveParticipant(market, testCreator)
	if err != nil {
		t.Fatal(err)
	}
	if a.Equals(b) {
		t.Error("different users must derive different participants")
	}
}

func TestDeriveUserStats_PerUser(t *testing.T) {
	a, _, err := DeriveUserStats(testUser)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := DeriveUserStats(testUser)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equals(b) {
		t.Error("user stats derivation must be deterministic")
	}
}
