package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// TokenDecimals number of decimal places of the token's base unit.
	TokenDecimals = 6
	// EtherDecimals number of decimal places of wei.
	EtherDecimals = 18
)

// Amount raw on-chain integer amount in base units.
type Amount = *big.Int

// TokenAmount converts raw token units into whole tokens exactly.
func TokenAmount(raw Amount) decimal.Decimal {
	return scale(raw, TokenDecimals)
}

// EtherAmount converts wei into ether exactly.
func EtherAmount(wei Amount) decimal.Decimal {
	return scale(wei, EtherDecimals)
}

func scale(raw Amount, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(raw, -decimals)
}

// FormatToken renders a token amount with the token's full precision.
func FormatToken(v decimal.Decimal) string {
	return v.StringFixed(TokenDecimals)
}

// FormatEther renders an ether amount the way wallets show it, three places.
func FormatEther(v decimal.Decimal) string {
	return v.StringFixed(3)
}
