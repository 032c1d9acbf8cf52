package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestQuantize_TruncatesTowardZero(t *testing.T) {
	q := QuantumTable{
		"WETH": dec(t, "0.000000000000000001"),
		"USDC": dec(t, "0.000001"),
	}

	cases := []struct {
		asset string
		in    string
		want  string
	}{
		{"WETH", "58.9039902399812373389999", "58.903990239981237338"},
		{"WETH", "1.0000000000000000019", "1.000000000000000001"},
		{"WETH", "-1.0000000000000000019", "-1.000000000000000001"},
		{"USDC", "1015.2424274954", "1015.242427"},
		{"USDC", "0.0000009", "0"},
		{"WETH", "0", "0"},
	}
	for _, c := range cases {
		got := q.Quantize(c.asset, dec(t, c.in))
		if !got.Equal(dec(t, c.want)) {
			t.Errorf("Quantize(%s, %s) = %s, want %s", c.asset, c.in, got, c.want)
		}
	}
}

func TestQuantize_ExactMultipleUnchanged(t *testing.T) {
	q := QuantumTable{"DAI": dec(t, "0.000000000000000001")}
	in := dec(t, "1015.242427495432379422")
	if got := q.Quantize("DAI", in); !got.Equal(in) {
		t.Errorf("Quantize exact multiple = %s, want %s", got, in)
	}
}

func TestQuantize_UnconfiguredAssetPassthrough(t *testing.T) {
	q := QuantumTable{"WETH": dec(t, "0.000000000000000001")}
	in := dec(t, "123.456789123456789123456789")
	if got := q.Quantize("SHIB", in); !got.Equal(in) {
		t.Errorf("Quantize unconfigured asset = %s, want %s unchanged", got, in)
	}
}

func TestQuantize_ZeroQuantumPassthrough(t *testing.T) {
	q := QuantumTable{"WETH": decimal.Zero}
	in := dec(t, "0.5")
	if got := q.Quantize("WETH", in); !got.Equal(in) {
		t.Errorf("Quantize with zero quantum = %s, want %s unchanged", got, in)
	}
}
