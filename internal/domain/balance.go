package domain

import "github.com/shopspring/decimal"

// BalanceSnapshot is one consistent view of account balances, keyed by asset
// symbol. A snapshot is replaced wholesale on each successful poll and never
// partially merged, so a failed poll leaves the prior snapshot untouched.
type BalanceSnapshot map[string]decimal.Decimal

// Get returns the available amount for asset, or zero if the asset has not
// been observed. Absence is "not yet seen", not an error.
func (b BalanceSnapshot) Get(asset string) decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	if v, ok := b[asset]; ok {
		return v
	}
	return decimal.Zero
}

// Clone returns an independent copy of the snapshot.
func (b BalanceSnapshot) Clone() BalanceSnapshot {
	out := make(BalanceSnapshot, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// ChainMetadata is the cached venue/chain descriptor, e.g. the native
// currency symbol in which gas fees are denominated. Fetched once and
// refreshed only on explicit invalidation.
type ChainMetadata struct {
	Chain          string
	Network        string
	ChainID        int64
	NativeCurrency string
	RPCURL         string
}
