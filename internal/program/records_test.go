package program

import (
	"errors"
	"testing"

	"cryptoscore-client/internal/borsh"
	"cryptoscore-client/internal/pubkey"
)

var (
	testFactory = pubkey.MustFromBase58("5zADKCecxATSEsCuH5MJa1JdfXGeBLNwEYnkCbqdaYmZ")
	testCreator = pubkey.MustFromBase58("94CjfuYYswDbcjasA1PTUmHhsqFsBQC4JnsiKB8nKJhQ")
	testUser    = pubkey.MustFromBase58("DHJASkp8vNuyR5xPSyj1G66xExRjnPBUuUN4QKiTnadZ")
)

func TestMarket_RoundTrip(t *testing.T) {
	outcome := OutcomeAway
	m := Market{
		Factory:          testFactory,
		Creator:          testCreator,
		MatchID:          "EPL-2024-123",
		EntryFee:         1_000_000_000,
		KickoffTime:      1_760_000_000,
		EndTime:          1_760_007_200,
		Status:           StatusResolved,
		Outcome:          &outcome,
		TotalPool:        5_000_000_000,
		ParticipantCount: 5,
		HomeCount:        2,
		DrawCount:        1,
		AwayCount:        2,
		IsPublic:         true,
		Bump:             254,
	}

	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := DecodeMarket(data)
	if err != nil {
		t.Fatalf("DecodeMarket: %v", err)
	}
	if *decoded != m && decoded.Outcome == nil {
		t.Fatal("decoded market differs")
	}
	if decoded.MatchID != m.MatchID || decoded.EntryFee != m.EntryFee ||
		decoded.Status != m.Status || *decoded.Outcome != outcome ||
		decoded.TotalPool != m.TotalPool || decoded.Bump != m.Bump {
		t.Errorf("decoded market differs: %+v", decoded)
	}
}

// Scenario: a private market with zero counters must decode faithfully.
func TestMarket_DecodePrivateZeroPool(t *testing.T) {
	m := Market{
		Factory:     testFactory,
		Creator:     testCreator,
		MatchID:     "private_match",
		EntryFee:    500,
		KickoffTime: 100,
		EndTime:     200,
		Status:      StatusOpen,
		IsPublic:    false,
	}
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if data[0] != uint8(KindMarket) {
		t.Fatalf("market discriminator: got %d, want 1", data[0])
	}

	decoded, err := DecodeMarket(data)
	if err != nil {
		t.Fatalf("DecodeMarket: %v", err)
	}
	if decoded.IsPublic {
		t.Error("IsPublic must decode as false")
	}
	if decoded.TotalPool != 0 || decoded.ParticipantCount != 0 {
		t.Error("counters must decode as zero")
	}
	if decoded.Outcome != nil {
		t.Error("unresolved market must have nil outcome")
	}
}

func TestFactory_RoundTrip(t *testing.T) {
	f := Factory{
		Authority:      testCreator,
		MarketCount:    42,
		PlatformFeeBps: 100,
		Bump:           253,
	}
	decoded, err := DecodeFactory(f.Encode())
	if err != nil {
		t.Fatalf("DecodeFactory: %v", err)
	}
	if *decoded != f {
		t.Errorf("decoded factory differs: %+v", decoded)
	}
}

func TestParticipant_RoundTrip(t *testing.T) {
	p := Participant{
		Market:       testFactory,
		User:         testUser,
		Prediction:   OutcomeDraw,
		JoinedAt:     1_700_000_000,
		HasWithdrawn: true,
		Bump:         255,
	}
	decoded, err := DecodeParticipant(p.Encode())
	if err != nil {
		t.Fatalf("DecodeParticipant: %v", err)
	}
	if *decoded != p {
		t.Errorf("decoded participant differs: %+v", decoded)
	}
}

func TestUserStats_RoundTrip(t *testing.T) {
	u := UserStats{
		User:          testUser,
		TotalMarkets:  10,
		Wins:          6,
		Losses:        4,
		TotalWagered:  10_000,
		TotalWon:      14_400,
		CurrentStreak: -2,
		BestStreak:    4,
		LastUpdated:   1_700_000_000,
		Bump:          251,
	}
	decoded, err := DecodeUserStats(u.Encode())
	if err != nil {
		t.Fatalf("DecodeUserStats: %v", err)
	}
	if *decoded != u {
		t.Errorf("decoded stats differ: %+v", decoded)
	}
}

func TestDecode_WrongDiscriminator(t *testing.T) {
	f := Factory{Authority: testCreator, MarketCount: 1}
	data := f.Encode()

	// Market decode on a factory buffer must fail with a typed error and
	// leave the bytes usable for a retry as the right variant.
	if _, err := DecodeMarket(data); !errors.Is(err, ErrWrongDiscriminator) {
		t.Errorf("expected ErrWrongDiscriminator, got %v", err)
	}
	if _, err := DecodeFactory(data); err != nil {
		t.Errorf("retry as factory should succeed, got %v", err)
	}
}

func TestDecode_UnknownDiscriminator(t *testing.T) {
	data := []byte{0x7F, 0, 0, 0}
	if _, err := DecodeAccount(data); !errors.Is(err, ErrUnknownDiscriminator) {
		t.Errorf("expected ErrUnknownDiscriminator, got %v", err)
	}
}

func TestDecode_EmptyBuffer(t *testing.T) {
	if HasDiscriminator(nil, KindMarket) {
		t.Error("empty buffer must not match any discriminator")
	}
	if _, err := DecodeMarket(nil); !errors.Is(err, borsh.ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestDecode_TruncatedBody(t *testing.T) {
	m := Market{Factory: testFactory, Creator: testCreator, MatchID: "m", EntryFee: 1}
	data, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	// Chop the buffer mid-field: decode must fail, never misread the next
	// field's bytes.
	if _, err := DecodeMarket(data[:40]); !errors.Is(err, borsh.ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestDecode_ZeroPaddingTolerated(t *testing.T) {
	// On-chain accounts are allocated at a fixed size; short match ids
	// leave zero padding after the last field.
	f := Factory{Authority: testCreator, MarketCount: 7, PlatformFeeBps: 50, Bump: 252}
	padded := append(f.Encode(), make([]byte, 16)...)

	decoded, err := DecodeFactory(padded)
	if err != nil {
		t.Fatalf("DecodeFactory with padding: %v", err)
	}
	if decoded.MarketCount != 7 {
		t.Error("padding must not disturb decoded fields")
	}
}

func TestDecodeAccount_Dispatch(t *testing.T) {
	p := Participant{Market: testFactory, User: testUser, Prediction: OutcomeHome}
	rec, err := DecodeAccount(p.Encode())
	if err != nil {
		t.Fatalf("DecodeAccount: %v", err)
	}
	if rec.Kind() != KindParticipant {
		t.Errorf("kind: got %s, want participant", rec.Kind())
	}
	if got, ok := rec.(Participant); !ok || got.User != testUser {
		t.Error("dispatch produced wrong variant")
	}
}
