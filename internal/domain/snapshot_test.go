package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestNewInitialSnapshot(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	accounts := []Account{NewAccount(common.HexToAddress("0x01"), "alice")}

	snap := NewInitialSnapshot(contract, accounts)
	assert.False(t, snap.Loading)
	assert.Equal(t, contract, *snap.Address)
	assert.Len(t, snap.Accounts, 1)
	assert.True(t, snap.GavBalanceTotal.IsZero())

	accounts[0].Name = "changed"
	assert.Equal(t, "alice", snap.Accounts[0].Name, "snapshot must own its account slice")
}

func TestSnapshot_CloneAndEqual(t *testing.T) {
	snap := NewInitialSnapshot(common.HexToAddress("0xaa"), []Account{
		NewAccount(common.HexToAddress("0x01"), "alice"),
	})
	clone := snap.Clone()
	assert.True(t, snap.Equal(clone))

	clone.Accounts[0] = clone.Accounts[0].WithBalances(big.NewInt(1), big.NewInt(0))
	assert.False(t, snap.Equal(clone))
	assert.False(t, snap.Accounts[0].HasGav)

	assert.False(t, LoadingSnapshot().Equal(snap))
}
