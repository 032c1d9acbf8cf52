package domain

import "errors"

var (
	ErrDuplicateOrder = errors.New("duplicate client order id")
	ErrOrderNotFound  = errors.New("order not found")
	ErrUnknownPair    = errors.New("unknown trading pair")
	ErrRateLimited    = errors.New("rate limited")
	ErrNotReady       = errors.New("connector not ready")
	ErrGatewayStatus  = errors.New("gateway returned non-2xx status")
)
