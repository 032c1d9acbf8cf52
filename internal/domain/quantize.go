package domain

import "github.com/shopspring/decimal"

// QuantumTable maps asset symbols to their minimal amount increment. The
// table is supplied externally (asset decimals are venue configuration, not
// something this engine derives). Amounts reported by the gateway carry
// floating-point dust, so every value is quantized once, at ingestion, and
// only quantized values are stored or surfaced.
type QuantumTable map[string]decimal.Decimal

// Quantize truncates value toward zero to the asset's minimal increment.
// Assets without a configured quantum are returned unchanged.
func (q QuantumTable) Quantize(asset string, value decimal.Decimal) decimal.Decimal {
	quantum, ok := q[asset]
	if !ok || quantum.IsZero() {
		return value
	}
	// Truncation toward zero: floor of |value|/quantum steps, sign restored.
	steps := value.DivRound(quantum, 64).Truncate(0)
	return steps.Mul(quantum)
}
