package program

import (
	"fmt"

	"cryptoscore-client/internal/borsh"
	"cryptoscore-client/internal/pubkey"
)

// Instruction builders. Each builder is pure: it validates wire-format
// constraints only (identifier bounds), encodes discriminator ‖ payload
// and fixes the account order and mutability/signer flags the receiving
// program expects. Business rules (fee > 0, end after kickoff) belong to
// the caller boundary; see ValidateCreateMarketParams.

// InitializeFactoryAccounts names the accounts for initialize-factory.
type InitializeFactoryAccounts struct {
	Factory   pubkey.PublicKey
	Authority pubkey.PublicKey
}

// NewInitializeFactory builds the initialize-factory instruction.
func NewInitializeFactory(platformFeeBps uint16, accounts InitializeFactoryAccounts) (*Instruction, error) {
	e := borsh.NewEncoder(8 + 2)
	e.WriteFixedBytes(DiscInitializeFactory[:])
	e.WriteU16(platformFeeBps)

	return &Instruction{
		ProgramID: FactoryProgramID,
		Accounts: []AccountMeta{
			{PublicKey: accounts.Factory, IsWritable: true},
			{PublicKey: accounts.Authority, IsWritable: true, IsSigner: true},
			{PublicKey: pubkey.SystemProgramID},
		},
		Data: e.Bytes(),
	}, nil
}

// CreateMarketParams is the typed payload of create-market.
type CreateMarketParams struct {
	MatchID     string
	EntryFee    uint64
	KickoffTime int64
	EndTime     int64
	IsPublic    bool
}

// CreateMarketAccounts names the accounts for create-market.
type CreateMarketAccounts struct {
	Market  pubkey.PublicKey
	Factory pubkey.PublicKey
	Creator pubkey.PublicKey
}

// ValidateCreateMarketParams checks the business rules the program will
// enforce, so a doomed call can be rejected before it is signed. now is
// the caller's current unix time. The wire bound on the match id is
// MaxMatchIDLen bytes, but a match id over pubkey.MaxSeedLength bytes
// cannot seed a market PDA: DeriveMarket rejects it even though the
// instruction itself encodes fine.
func ValidateCreateMarketParams(p CreateMarketParams, now int64) error {
	if p.MatchID == "" {
		return fmt.Errorf("%w: match id must not be empty", ErrInvalidParams)
	}
	if len(p.MatchID) > MaxMatchIDLen {
		return fmt.Errorf("%w: match id exceeds %d bytes", ErrInvalidParams, MaxMatchIDLen)
	}
	if p.EntryFee == 0 {
		return fmt.Errorf("%w: entry fee must be greater than zero", ErrInvalidParams)
	}
	if p.KickoffTime <= now {
		return fmt.Errorf("%w: kickoff time must be in the future", ErrInvalidParams)
	}
	if p.EndTime <= p.KickoffTime {
		return fmt.Errorf("%w: end time must be after kickoff time", ErrInvalidParams)
	}
	return nil
}

// ValidatePlatformFeeBps checks the factory fee bound (max 10%).
func ValidatePlatformFeeBps(bps uint16) error {
	if bps > 1000 {
		return fmt.Errorf("%w: platform fee %d bps exceeds 1000", ErrInvalidParams, bps)
	}
	return nil
}

// NewCreateMarket builds the create-market instruction. The factory
// account is writable: the deployed program bumps its market counter.
func NewCreateMarket(params CreateMarketParams, accounts CreateMarketAccounts) (*Instruction, error) {
	e := borsh.NewEncoder(8 + 4 + len(params.MatchID) + 8 + 8 + 8 + 1)
	e.WriteFixedBytes(DiscCreateMarket[:])
	if err := e.WriteString(params.MatchID, MaxMatchIDLen); err != nil {
		return nil, fmt.Errorf("encode match id: %w", err)
	}
	e.WriteU64(params.EntryFee)
	e.WriteI64(params.KickoffTime)
	e.WriteI64(params.EndTime)
	e.WriteBool(params.IsPublic)

	return &Instruction{
		ProgramID: MarketProgramID,
		Accounts: []AccountMeta{
			{PublicKey: accounts.Market, IsWritable: true},
			{PublicKey: accounts.Factory, IsWritable: true},
			{PublicKey: accounts.Creator, IsWritable: true, IsSigner: true},
			{PublicKey: pubkey.SystemProgramID},
		},
		Data: e.Bytes(),
	}, nil
}

// JoinMarketAccounts names the accounts for join-market.
type JoinMarketAccounts struct {
	Market      pubkey.PublicKey
	Participant pubkey.PublicKey
	User        pubkey.PublicKey
}

// NewJoinMarket builds the join-market instruction.
func NewJoinMarket(prediction MatchOutcome, accounts JoinMarketAccounts) (*Instruction, error) {
	if prediction > OutcomeAway {
		return nil, fmt.Errorf("%w: invalid prediction %d", ErrInvalidParams, prediction)
	}
	e := borsh.NewEncoder(8 + 1)
	e.WriteFixedBytes(DiscJoinMarket[:])
	e.WriteU8(uint8(prediction))

	return &Instruction{
		ProgramID: MarketProgramID,
		Accounts: []AccountMeta{
			{PublicKey: accounts.Market, IsWritable: true},
			{PublicKey: accounts.Participant, IsWritable: true},
			{PublicKey: accounts.User, IsWritable: true, IsSigner: true},
			{PublicKey: pubkey.SystemProgramID},
		},
		Data: e.Bytes(),
	}, nil
}

// ResolveMarketAccounts names the accounts for resolve-market. The
// participant entry is optional; a zero value omits it.
type ResolveMarketAccounts struct {
	Market         pubkey.PublicKey
	Resolver       pubkey.PublicKey
	CreatorFeeDest pubkey.PublicKey
	PlatformDest   pubkey.PublicKey
	Participant    pubkey.PublicKey
}

// NewResolveMarket builds the resolve-market instruction.
func NewResolveMarket(outcome MatchOutcome, accounts ResolveMarketAccounts) (*Instruction, error) {
	if outcome > OutcomeAway {
		return nil, fmt.Errorf("%w: invalid outcome %d", ErrInvalidParams, outcome)
	}
	e := borsh.NewEncoder(8 + 1)
	e.WriteFixedBytes(DiscResolveMarket[:])
	e.WriteU8(uint8(outcome))

	metas := []AccountMeta{
		{PublicKey: accounts.Market, IsWritable: true},
		{PublicKey: accounts.Resolver, IsSigner: true},
		{PublicKey: accounts.CreatorFeeDest, IsWritable: true},
		{PublicKey: accounts.PlatformDest, IsWritable: true},
	}
	if !accounts.Participant.IsZero() {
		metas = append(metas, AccountMeta{PublicKey: accounts.Participant})
	}

	return &Instruction{
		ProgramID: MarketProgramID,
		Accounts:  metas,
		Data:      e.Bytes(),
	}, nil
}

// WithdrawAccounts names the accounts for withdraw-rewards.
type WithdrawAccounts struct {
	Market      pubkey.PublicKey
	Participant pubkey.PublicKey
	User        pubkey.PublicKey
}

// NewWithdrawRewards builds the payload-less withdraw instruction: the
// data is the discriminator alone.
func NewWithdrawRewards(accounts WithdrawAccounts) (*Instruction, error) {
	return &Instruction{
		ProgramID: MarketProgramID,
		Accounts: []AccountMeta{
			{PublicKey: accounts.Market, IsWritable: true},
			{PublicKey: accounts.Participant, IsWritable: true},
			{PublicKey: accounts.User, IsWritable: true, IsSigner: true},
			{PublicKey: pubkey.SystemProgramID},
		},
		Data: DiscWithdrawRewards[:],
	}, nil
}

// UpdateUserStatsParams is the typed payload of update-user-stats.
type UpdateUserStatsParams struct {
	Result        MarketResult
	AmountWagered uint64
	AmountWon     uint64
}

// UpdateUserStatsAccounts names the accounts for update-user-stats.
type UpdateUserStatsAccounts struct {
	UserStats pubkey.PublicKey
	User      pubkey.PublicKey
}

// NewUpdateUserStats builds the update-user-stats instruction.
func NewUpdateUserStats(params UpdateUserStatsParams, accounts UpdateUserStatsAccounts) (*Instruction, error) {
	if params.Result > ResultLoss {
		return nil, fmt.Errorf("%w: invalid result %d", ErrInvalidParams, params.Result)
	}
	e := borsh.NewEncoder(8 + 1 + 8 + 8)
	e.WriteFixedBytes(DiscUpdateUserStats[:])
	e.WriteU8(uint8(params.Result))
	e.WriteU64(params.AmountWagered)
	e.WriteU64(params.AmountWon)

	return &Instruction{
		ProgramID: DashboardProgramID,
		Accounts: []AccountMeta{
			{PublicKey: accounts.UserStats, IsWritable: true},
			{PublicKey: accounts.User, IsWritable: true, IsSigner: true},
			{PublicKey: pubkey.SystemProgramID},
		},
		Data: e.Bytes(),
	}, nil
}
