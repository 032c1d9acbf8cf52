package connector

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfarm/ammbot/internal/domain"
)

func pendingOrder(id string) domain.Order {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Order{
		ClientOrderID: id,
		TradingPair:   "DAI-WETH",
		TradeType:     domain.TradeTypeBuy,
		OrderType:     domain.OrderTypeLimit,
		Price:         decimal.RequireFromString("0.002684496"),
		Amount:        decimal.NewFromInt(100),
		State:         domain.OrderStatePendingCreate,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

func TestTracker_StartTrackingRejectsDuplicates(t *testing.T) {
	tr := NewTracker()
	if err := tr.StartTracking(pendingOrder("o1")); err != nil {
		t.Fatalf("StartTracking: %v", err)
	}
	if err := tr.StartTracking(pendingOrder("o1")); !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Fatalf("duplicate StartTracking err = %v, want ErrDuplicateOrder", err)
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr.Len())
	}
}

func TestTracker_StopTrackingAbsentIsNoop(t *testing.T) {
	tr := NewTracker()
	tr.StopTracking("missing")
}

func TestTracker_MarkCreatedOnlyFromPendingCreate(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	if err := tr.StartTracking(pendingOrder("o1")); err != nil {
		t.Fatal(err)
	}

	updated, applied := tr.MarkCreated("o1", "0xaaa", now)
	if !applied {
		t.Fatal("first MarkCreated should apply")
	}
	if updated.State != domain.OrderStateCreated || updated.ExchangeOrderID != "0xaaa" {
		t.Errorf("order after MarkCreated = %+v", updated)
	}

	// Second ack must not overwrite the exchange order ID.
	if _, applied := tr.MarkCreated("o1", "0xbbb", now); applied {
		t.Error("second MarkCreated should be a no-op")
	}
	got, _ := tr.Get("o1")
	if got.ExchangeOrderID != "0xaaa" {
		t.Errorf("exchange order ID = %s, want 0xaaa", got.ExchangeOrderID)
	}

	if _, applied := tr.MarkCreated("missing", "0xccc", now); applied {
		t.Error("MarkCreated on unknown order should be a no-op")
	}
}

func TestTracker_FirstTerminalResultWins(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	if err := tr.StartTracking(pendingOrder("o1")); err != nil {
		t.Fatal(err)
	}
	tr.MarkCreated("o1", "0xaaa", now)

	amount := decimal.NewFromInt(100)
	price := decimal.RequireFromString("0.002684496")
	fee := decimal.RequireFromString("0.0005")

	if _, applied := tr.MarkFilled("o1", amount, price, fee, now); !applied {
		t.Fatal("first MarkFilled should apply")
	}
	// Duplicate confirmation: no-op.
	if _, applied := tr.MarkFilled("o1", amount, price, fee, now); applied {
		t.Error("duplicate MarkFilled should be a no-op")
	}
	// Conflicting terminal result: also a no-op.
	if _, applied := tr.MarkFailed("o1", "reverted", now); applied {
		t.Error("MarkFailed after fill should be a no-op")
	}

	got, _ := tr.Get("o1")
	if got.State != domain.OrderStateFilled {
		t.Errorf("state = %v, want filled", got.State)
	}
	if !got.ExecutedAmount.Equal(amount) || !got.ExecutedPrice.Equal(price) || !got.FeePaid.Equal(fee) {
		t.Errorf("fill details = %s @ %s fee %s", got.ExecutedAmount, got.ExecutedPrice, got.FeePaid)
	}
}

func TestTracker_FailedThenFilledIsDiscarded(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	if err := tr.StartTracking(pendingOrder("o1")); err != nil {
		t.Fatal(err)
	}
	tr.MarkCreated("o1", "0xaaa", now)

	if _, applied := tr.MarkFailed("o1", "transaction reverted", now); !applied {
		t.Fatal("MarkFailed should apply")
	}
	if _, applied := tr.MarkFilled("o1", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, now); applied {
		t.Error("MarkFilled after failure should be a no-op")
	}
	got, _ := tr.Get("o1")
	if got.State != domain.OrderStateFailed || got.FailureReason != "transaction reverted" {
		t.Errorf("order = %+v", got)
	}
}

func TestTracker_CancelOnlyBeforeSubmission(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()

	if err := tr.StartTracking(pendingOrder("unsubmitted")); err != nil {
		t.Fatal(err)
	}
	if _, applied := tr.MarkCancelled("unsubmitted", now); !applied {
		t.Fatal("cancel of unsubmitted order should apply")
	}

	if err := tr.StartTracking(pendingOrder("submitted")); err != nil {
		t.Fatal(err)
	}
	tr.MarkCreated("submitted", "0xaaa", now)
	if _, applied := tr.MarkCancelled("submitted", now); applied {
		t.Error("cancel after submission should be a no-op")
	}

	if _, applied := tr.MarkCancelled("missing", now); applied {
		t.Error("cancel of unknown order should be a no-op")
	}
}

func TestTracker_CancelRacesSubmissionAck(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	if err := tr.StartTracking(pendingOrder("o1")); err != nil {
		t.Fatal(err)
	}

	// Cancel lands first; the late submission ack must be discarded.
	if _, applied := tr.MarkCancelled("o1", now); !applied {
		t.Fatal("cancel should apply")
	}
	if _, applied := tr.MarkCreated("o1", "0xaaa", now); applied {
		t.Error("late MarkCreated after cancel should be a no-op")
	}
	got, _ := tr.Get("o1")
	if got.State != domain.OrderStateCancelled || got.ExchangeOrderID != "" {
		t.Errorf("order = %+v", got)
	}
}

func TestTracker_AllNonTerminalIsSnapshot(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	for _, id := range []string{"a", "b", "c"} {
		if err := tr.StartTracking(pendingOrder(id)); err != nil {
			t.Fatal(err)
		}
	}
	tr.MarkFailed("c", "gone", now)

	snap := tr.AllNonTerminal()
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	// Mutating the snapshot must not touch tracker state.
	snap[0].State = domain.OrderStateFilled
	for _, id := range []string{"a", "b"} {
		got, _ := tr.Get(id)
		if got.State != domain.OrderStatePendingCreate {
			t.Errorf("order %s state = %v, want pending_create", id, got.State)
		}
	}
}

func TestTracker_EvictTerminalHonorsGrace(t *testing.T) {
	tr := NewTracker()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	grace := 10 * time.Minute

	if err := tr.StartTracking(pendingOrder("old")); err != nil {
		t.Fatal(err)
	}
	if err := tr.StartTracking(pendingOrder("fresh")); err != nil {
		t.Fatal(err)
	}
	if err := tr.StartTracking(pendingOrder("open")); err != nil {
		t.Fatal(err)
	}
	tr.MarkFailed("old", "reverted", base)
	tr.MarkFailed("fresh", "reverted", base.Add(9*time.Minute))

	evicted := tr.EvictTerminal(base.Add(10*time.Minute), grace)
	if len(evicted) != 1 || evicted[0].ClientOrderID != "old" {
		t.Fatalf("evicted = %+v, want only old", evicted)
	}
	if _, ok := tr.Get("old"); ok {
		t.Error("old order should be gone")
	}
	if _, ok := tr.Get("fresh"); !ok {
		t.Error("fresh terminal order should be retained inside grace")
	}
	if _, ok := tr.Get("open"); !ok {
		t.Error("non-terminal order must never be evicted")
	}
}
