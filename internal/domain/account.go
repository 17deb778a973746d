// Package domain defines core data structures shared by the synchronizer and its consumers.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// UnnamedAccount is the label used when the identity store has no name for an account.
const UnnamedAccount = "Unnamed"

// Account a watched account and its balances as of the last committed pass.
type Account struct {
	// Address identity of the account.
	Address common.Address `json:"address"`
	// Name human-readable label.
	Name string `json:"name"`
	// EthBalance native balance in ether.
	EthBalance decimal.Decimal `json:"eth_balance"`
	// GavBalance token balance in whole tokens.
	GavBalance decimal.Decimal `json:"gav_balance"`
	// HasGav reports GavBalance > 0.
	HasGav bool `json:"has_gav"`
}

// NewAccount creates an account with zero balances.
func NewAccount(address common.Address, name string) Account {
	if name == "" {
		name = UnnamedAccount
	}

	return Account{
		Address:    address,
		Name:       name,
		EthBalance: decimal.Zero,
		GavBalance: decimal.Zero,
	}
}

// WithBalances returns a copy of the account carrying the given raw balances.
func (a Account) WithBalances(rawGav, wei Amount) Account {
	a.GavBalance = TokenAmount(rawGav)
	a.EthBalance = EtherAmount(wei)
	a.HasGav = a.GavBalance.IsPositive()

	return a
}

// AccountMeta display metadata the identity store keeps for an account.
type AccountMeta struct {
	Name string `json:"name"`
}
