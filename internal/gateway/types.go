package gateway

import (
	"github.com/shopspring/decimal"

	"github.com/quantfarm/ammbot/internal/domain"
)

// API request/response shapes for the execution gateway. Amounts travel as
// decimal strings; the gateway reports raw unquantized values and the
// connector quantizes on ingestion.

type balancesRequest struct {
	Chain        string   `json:"chain"`
	Network      string   `json:"network"`
	Address      string   `json:"address"`
	TokenSymbols []string `json:"tokenSymbols,omitempty"`
}

type balancesResponse struct {
	Balances map[string]string `json:"balances"`
}

type priceRequest struct {
	Chain     string `json:"chain"`
	Network   string `json:"network"`
	Connector string `json:"connector"`
	Base      string `json:"base"`
	Quote     string `json:"quote"`
	Side      string `json:"side"`
	Amount    string `json:"amount"`
}

type priceResponse struct {
	Price string `json:"price"`
}

type tradeRequest struct {
	Chain      string `json:"chain"`
	Network    string `json:"network"`
	Connector  string `json:"connector"`
	Address    string `json:"address"`
	Base       string `json:"base"`
	Quote      string `json:"quote"`
	Side       string `json:"side"`
	Amount     string `json:"amount"`
	LimitPrice string `json:"limitPrice"`
	GasPrice   string `json:"gasPrice,omitempty"`
}

type tradeResponse struct {
	TxHash string `json:"txHash"`
}

type pollRequest struct {
	Chain   string `json:"chain"`
	Network string `json:"network"`
	TxHash  string `json:"txHash"`
}

// txStatus codes reported by the gateway poll endpoint.
const (
	pollStatusPending   = 0
	pollStatusConfirmed = 1
	pollStatusFailed    = -1
)

type pollResponse struct {
	TxStatus       *int   `json:"txStatus"`
	ExecutedAmount string `json:"executedAmount,omitempty"`
	ExecutedPrice  string `json:"executedPrice,omitempty"`
	Fee            string `json:"fee,omitempty"`
}

type chainResponse struct {
	Chain          string `json:"chain"`
	Network        string `json:"network"`
	ChainID        int64  `json:"chainId"`
	NativeCurrency string `json:"nativeCurrency"`
	RPCURL         string `json:"rpcUrl"`
}

func (r chainResponse) toDomain() domain.ChainMetadata {
	return domain.ChainMetadata{
		Chain:          r.Chain,
		Network:        r.Network,
		ChainID:        r.ChainID,
		NativeCurrency: r.NativeCurrency,
		RPCURL:         r.RPCURL,
	}
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
