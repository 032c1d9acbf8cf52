package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quantfarm/ammbot/internal/domain"
)

// minPartSize is the minimum allowed part size for S3 multipart uploads (5 MiB).
const minPartSize int64 = 5 * 1024 * 1024

// Archiver implements domain.OrderArchiver by serializing each evicted
// terminal order to JSON under orders/YYYY/MM/DD/<client_order_id>.json.
type Archiver struct {
	client *s3.Client
	bucket string
}

// NewArchiver creates an Archiver writing into the client's bucket.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// archivedOrder is the stable JSON shape of one archived order record.
type archivedOrder struct {
	ClientOrderID   string    `json:"client_order_id"`
	ExchangeOrderID string    `json:"exchange_order_id,omitempty"`
	TradingPair     string    `json:"trading_pair"`
	TradeType       string    `json:"trade_type"`
	OrderType       string    `json:"order_type"`
	Price           string    `json:"price"`
	Amount          string    `json:"amount"`
	GasPrice        string    `json:"gas_price"`
	FeeAsset        string    `json:"fee_asset,omitempty"`
	State           string    `json:"state"`
	ExecutedAmount  string    `json:"executed_amount,omitempty"`
	ExecutedPrice   string    `json:"executed_price,omitempty"`
	FeePaid         string    `json:"fee_paid,omitempty"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	LastUpdatedAt   time.Time `json:"last_updated_at"`
}

// Archive uploads one terminal order record.
func (a *Archiver) Archive(ctx context.Context, order domain.Order) error {
	rec := archivedOrder{
		ClientOrderID:   order.ClientOrderID,
		ExchangeOrderID: order.ExchangeOrderID,
		TradingPair:     order.TradingPair,
		TradeType:       string(order.TradeType),
		OrderType:       string(order.OrderType),
		Price:           order.Price.String(),
		Amount:          order.Amount.String(),
		GasPrice:        order.GasPrice.String(),
		FeeAsset:        order.FeeAsset,
		State:           order.State.String(),
		FailureReason:   order.FailureReason,
		CreatedAt:       order.CreatedAt,
		LastUpdatedAt:   order.LastUpdatedAt,
	}
	if order.State == domain.OrderStateFilled {
		rec.ExecutedAmount = order.ExecutedAmount.String()
		rec.ExecutedPrice = order.ExecutedPrice.String()
		rec.FeePaid = order.FeePaid.String()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("s3blob: marshal order %s: %w", order.ClientOrderID, err)
	}

	key := fmt.Sprintf("orders/%s/%s.json",
		order.LastUpdatedAt.UTC().Format("2006/01/02"),
		order.ClientOrderID,
	)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: archive order %s: %w", order.ClientOrderID, err)
	}
	return nil
}

// ArchiveBatch uploads a JSON-lines batch of orders as a single object,
// using the multipart upload manager for large batches.
func (a *Archiver) ArchiveBatch(ctx context.Context, key string, orders []domain.Order) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, o := range orders {
		rec := archivedOrder{
			ClientOrderID:   o.ClientOrderID,
			ExchangeOrderID: o.ExchangeOrderID,
			TradingPair:     o.TradingPair,
			TradeType:       string(o.TradeType),
			OrderType:       string(o.OrderType),
			Price:           o.Price.String(),
			Amount:          o.Amount.String(),
			GasPrice:        o.GasPrice.String(),
			FeeAsset:        o.FeeAsset,
			State:           o.State.String(),
			FailureReason:   o.FailureReason,
			CreatedAt:       o.CreatedAt,
			LastUpdatedAt:   o.LastUpdatedAt,
		}
		if o.State == domain.OrderStateFilled {
			rec.ExecutedAmount = o.ExecutedAmount.String()
			rec.ExecutedPrice = o.ExecutedPrice.String()
			rec.FeePaid = o.FeePaid.String()
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("s3blob: encode order %s: %w", o.ClientOrderID, err)
		}
	}

	uploader := manager.NewUploader(a.client, func(u *manager.Uploader) {
		u.PartSize = minPartSize
	})
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        &buf,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: archive batch %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OrderArchiver = (*Archiver)(nil)
