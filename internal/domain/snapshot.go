package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// GlobalState contract-wide counters as of a block.
type GlobalState struct {
	BlockNumber uint64          `json:"block_number"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	Remaining   decimal.Decimal `json:"remaining"`
	Price       decimal.Decimal `json:"price"`
}

// Snapshot externally visible synchronized state.
// A published snapshot is never modified; a new value replaces it.
type Snapshot struct {
	GlobalState

	Loading         bool            `json:"loading"`
	Address         *common.Address `json:"address,omitempty"`
	Accounts        []Account       `json:"accounts"`
	EthBalanceTotal decimal.Decimal `json:"eth_balance_total"`
	GavBalanceTotal decimal.Decimal `json:"gav_balance_total"`
}

// LoadingSnapshot is the state before startup has published anything.
func LoadingSnapshot() Snapshot {
	return Snapshot{Loading: true}
}

// NewInitialSnapshot builds the first published snapshot: resolved contract and zero balances.
func NewInitialSnapshot(contract common.Address, accounts []Account) Snapshot {
	addr := contract

	return Snapshot{
		GlobalState: GlobalState{
			TotalSupply: decimal.Zero,
			Remaining:   decimal.Zero,
			Price:       decimal.Zero,
		},
		Address:         &addr,
		Accounts:        append([]Account(nil), accounts...),
		EthBalanceTotal: decimal.Zero,
		GavBalanceTotal: decimal.Zero,
	}
}

// Clone returns a deep copy safe to modify.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Address != nil {
		addr := *s.Address
		out.Address = &addr
	}
	out.Accounts = append([]Account(nil), s.Accounts...)

	return out
}

// Equal compares two snapshots by value, decimals compared numerically.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.Loading != o.Loading || s.BlockNumber != o.BlockNumber {
		return false
	}
	if (s.Address == nil) != (o.Address == nil) || (s.Address != nil && *s.Address != *o.Address) {
		return false
	}
	if !s.TotalSupply.Equal(o.TotalSupply) || !s.Remaining.Equal(o.Remaining) || !s.Price.Equal(o.Price) {
		return false
	}
	if !s.EthBalanceTotal.Equal(o.EthBalanceTotal) || !s.GavBalanceTotal.Equal(o.GavBalanceTotal) {
		return false
	}
	if len(s.Accounts) != len(o.Accounts) {
		return false
	}
	for i := range s.Accounts {
		a, b := s.Accounts[i], o.Accounts[i]
		if a.Address != b.Address || a.Name != b.Name || a.HasGav != b.HasGav ||
			!a.EthBalance.Equal(b.EthBalance) || !a.GavBalance.Equal(b.GavBalance) {
			return false
		}
	}

	return true
}

// SnapshotRecord bundles a snapshot with the log index it was persisted under.
type SnapshotRecord struct {
	Index    uint64
	Snapshot Snapshot
}
