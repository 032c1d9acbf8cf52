// Package gateway implements the REST client for the intermediary execution
// gateway that translates connector requests into venue-native operations.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/quantfarm/ammbot/internal/domain"
)

// Client is the HTTP client for the gateway service. It is stateless per
// call; all venue state is inferred by the connector from repeated polls.
type Client struct {
	baseURL    string
	chain      string
	network    string
	connector  string
	address    string
	httpClient *http.Client
	limiter    domain.RateLimiter
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter gates every outbound request on the given limiter.
func WithRateLimiter(rl domain.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// NewClient creates a gateway client.
//
// baseURL is the gateway root, e.g. "https://localhost:15888". chain,
// network, and connector name the venue (e.g. "ethereum", "mainnet",
// "uniswap"). address is the wallet whose balances and trades this
// connector manages; it must be a valid hex address.
func NewClient(baseURL, chain, network, connector, address string, opts ...Option) (*Client, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("gateway: invalid wallet address %q", address)
	}
	c := &Client{
		baseURL:   baseURL,
		chain:     chain,
		network:   network,
		connector: connector,
		address:   common.HexToAddress(address).Hex(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address returns the checksummed wallet address the client was built with.
func (c *Client) Address() string {
	return c.address
}

// Balances fetches available balances for the given address. The gateway
// reports every token it is configured with; amounts are decimal strings.
func (c *Client) Balances(ctx context.Context, address string) (domain.BalanceSnapshot, error) {
	if address == "" {
		address = c.address
	} else if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("gateway: invalid address %q", address)
	}

	req := balancesRequest{
		Chain:   c.chain,
		Network: c.network,
		Address: address,
	}
	var resp balancesResponse
	if err := c.doPost(ctx, "/network/balances", req, &resp); err != nil {
		return nil, fmt.Errorf("gateway: balances: %w", err)
	}

	snapshot := make(domain.BalanceSnapshot, len(resp.Balances))
	for asset, raw := range resp.Balances {
		amount, ok := parseDecimal(raw)
		if !ok {
			return nil, fmt.Errorf("gateway: balances: malformed amount %q for asset %s", raw, asset)
		}
		snapshot[asset] = amount
	}
	return snapshot, nil
}

// Price fetches an indicative swap price for the pair, side, and amount.
// Buy and sell are independent quotes; the venue may price them
// asymmetrically and no caching happens here.
func (c *Client) Price(ctx context.Context, pair string, side domain.TradeType, amount decimal.Decimal) (decimal.Decimal, error) {
	base, quote, err := splitPair(pair)
	if err != nil {
		return decimal.Zero, fmt.Errorf("gateway: price: %w", err)
	}

	req := priceRequest{
		Chain:     c.chain,
		Network:   c.network,
		Connector: c.connector,
		Base:      base,
		Quote:     quote,
		Side:      sideString(side),
		Amount:    amount.String(),
	}
	var resp priceResponse
	if err := c.doPost(ctx, "/amm/price", req, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("gateway: price %s %s: %w", pair, side, err)
	}

	price, ok := parseDecimal(resp.Price)
	if !ok {
		return decimal.Zero, fmt.Errorf("gateway: price %s %s: malformed price %q", pair, side, resp.Price)
	}
	return price, nil
}

// SubmitOrder submits a swap and returns the venue transaction hash. The
// hash is validated before being handed to the order tracker: a gateway
// that acknowledges a trade without a well-formed hash is treated as a
// failed submission.
func (c *Client) SubmitOrder(ctx context.Context, req domain.SubmitOrderRequest) (string, error) {
	base, quote, err := splitPair(req.TradingPair)
	if err != nil {
		return "", fmt.Errorf("gateway: submit order: %w", err)
	}

	body := tradeRequest{
		Chain:      c.chain,
		Network:    c.network,
		Connector:  c.connector,
		Address:    c.address,
		Base:       base,
		Quote:      quote,
		Side:       sideString(req.TradeType),
		Amount:     req.Amount.String(),
		LimitPrice: req.Price.String(),
	}
	if !req.GasPrice.IsZero() {
		body.GasPrice = req.GasPrice.String()
	}

	var resp tradeResponse
	if err := c.doPost(ctx, "/amm/trade", body, &resp); err != nil {
		return "", fmt.Errorf("gateway: submit order %s %s: %w", req.TradingPair, req.TradeType, err)
	}
	if !validTxHash(resp.TxHash) {
		return "", fmt.Errorf("gateway: submit order %s %s: malformed tx hash %q", req.TradingPair, req.TradeType, resp.TxHash)
	}
	return resp.TxHash, nil
}

// TransactionStatus polls the gateway for the status of a transaction. A
// gateway response with no txStatus field means the venue has no record of
// the hash yet; that maps to TxUnknown, never to TxFailed.
func (c *Client) TransactionStatus(ctx context.Context, exchangeOrderID string) (domain.TxStatus, error) {
	if !validTxHash(exchangeOrderID) {
		return domain.TxStatus{}, fmt.Errorf("gateway: transaction status: malformed tx hash %q", exchangeOrderID)
	}

	req := pollRequest{
		Chain:   c.chain,
		Network: c.network,
		TxHash:  exchangeOrderID,
	}
	var resp pollResponse
	if err := c.doPost(ctx, "/network/poll", req, &resp); err != nil {
		return domain.TxStatus{}, fmt.Errorf("gateway: transaction status %s: %w", exchangeOrderID, err)
	}

	if resp.TxStatus == nil {
		return domain.TxStatus{Kind: domain.TxUnknown}, nil
	}

	switch *resp.TxStatus {
	case pollStatusConfirmed:
		status := domain.TxStatus{Kind: domain.TxConfirmed}
		if v, ok := parseDecimal(resp.ExecutedAmount); ok {
			status.ExecutedAmount = v
		}
		if v, ok := parseDecimal(resp.ExecutedPrice); ok {
			status.ExecutedPrice = v
		}
		if v, ok := parseDecimal(resp.Fee); ok {
			status.FeePaid = v
		}
		return status, nil
	case pollStatusFailed:
		return domain.TxStatus{Kind: domain.TxFailed}, nil
	case pollStatusPending:
		return domain.TxStatus{Kind: domain.TxPending}, nil
	default:
		return domain.TxStatus{Kind: domain.TxUnknown}, nil
	}
}

// ChainMetadata fetches the chain descriptor, including the native currency
// in which gas fees are denominated.
func (c *Client) ChainMetadata(ctx context.Context) (domain.ChainMetadata, error) {
	var resp chainResponse
	if err := c.doGet(ctx, "/chain", &resp); err != nil {
		return domain.ChainMetadata{}, fmt.Errorf("gateway: chain metadata: %w", err)
	}
	return resp.toDomain(), nil
}

func (c *Client) doPost(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), out)
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "gateway:"+path); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s -> %d: %s",
			domain.ErrGatewayStatus, method, path, resp.StatusCode, truncate(respBody, 256))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func sideString(side domain.TradeType) string {
	if side == domain.TradeTypeSell {
		return "SELL"
	}
	return "BUY"
}

// splitPair parses "DAI-WETH" into base and quote symbols.
func splitPair(pair string) (string, string, error) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '-' {
			base, quote := pair[:i], pair[i+1:]
			if base == "" || quote == "" {
				break
			}
			return base, quote, nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", domain.ErrUnknownPair, pair)
}

// validTxHash reports whether s is a 32-byte 0x-prefixed hex hash.
func validTxHash(s string) bool {
	b, err := hexutil.Decode(s)
	if err != nil {
		return false
	}
	return len(b) == common.HashLength
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Compile-time interface check.
var _ domain.VenueClient = (*Client)(nil)
