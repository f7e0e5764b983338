package ledger

import (
	"errors"
	"testing"
)

func checkInvariant(t *testing.T, b Buckets) {
	t.Helper()
	if err := b.Check(); err != nil {
		t.Fatalf("invariant broken: %+v: %v", b, err)
	}
}

func TestNewBuckets(t *testing.T) {
	b := NewBuckets(100)
	if b.Total != 100 || b.Available != 100 || b.OnHold != 0 || b.Exhausted != 0 {
		t.Fatalf("unexpected initial state: %+v", b)
	}
	checkInvariant(t, b)
}

func TestPlaceMovesAvailableToHold(t *testing.T) {
	b := NewBuckets(100)
	if err := b.Place(10); err != nil {
		t.Fatalf("place: %v", err)
	}
	if b.Available != 90 || b.OnHold != 10 || b.Total != 100 {
		t.Fatalf("unexpected state after place: %+v", b)
	}
	checkInvariant(t, b)
}

func TestPlaceInsufficientLeavesStateUnchanged(t *testing.T) {
	b := NewBuckets(5)
	before := b
	err := b.Place(6)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if b != before {
		t.Fatalf("state changed after failed place: %+v", b)
	}
}

func TestPlaceCancelRoundTrip(t *testing.T) {
	for _, qty := range []int{1, 7, 100} {
		b := NewBuckets(100)
		before := b
		if err := b.Place(qty); err != nil {
			t.Fatalf("place %d: %v", qty, err)
		}
		if err := b.Cancel(qty); err != nil {
			t.Fatalf("cancel %d: %v", qty, err)
		}
		if b != before {
			t.Fatalf("round trip qty=%d did not restore state: %+v", qty, b)
		}
	}
}

func TestCancelMoreThanHeld(t *testing.T) {
	b := NewBuckets(100)
	if err := b.Place(10); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := b.Cancel(11); !errors.Is(err, ErrInsufficientHold) {
		t.Fatalf("expected ErrInsufficientHold, got %v", err)
	}
}

func TestFulfillShrinksTotal(t *testing.T) {
	b := NewBuckets(100)
	if err := b.Place(10); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := b.Fulfill(10); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if b.Total != 90 || b.OnHold != 0 || b.Exhausted != 10 || b.Available != 90 {
		t.Fatalf("unexpected state after fulfill: %+v", b)
	}
	checkInvariant(t, b)
}

// Fulfilled units leave total entirely; every post-fulfill state must
// still satisfy Check, with exhausted accumulating outside the sum.
func TestFulfilledUnitsLeaveTotal(t *testing.T) {
	b := NewBuckets(100)
	for i := 0; i < 3; i++ {
		if err := b.Place(10); err != nil {
			t.Fatalf("place #%d: %v", i, err)
		}
		if err := b.Fulfill(10); err != nil {
			t.Fatalf("fulfill #%d: %v", i, err)
		}
		checkInvariant(t, b)
	}
	if b.Total != 70 || b.Available != 70 || b.Exhausted != 30 {
		t.Fatalf("unexpected state after repeated fulfill: %+v", b)
	}
}

func TestCheckRejectsMismatchedTotal(t *testing.T) {
	b := Buckets{Total: 10, Available: 5, OnHold: 3, Exhausted: 2}
	if err := b.Check(); !errors.Is(err, ErrInvariantBroken) {
		t.Fatalf("expected ErrInvariantBroken, got %v", err)
	}
	b = Buckets{Total: 8, Available: 5, OnHold: 3, Exhausted: 2}
	if err := b.Check(); err != nil {
		t.Fatalf("consistent state rejected: %v", err)
	}
}

func TestFulfillRequiresHold(t *testing.T) {
	b := NewBuckets(100)
	if err := b.Fulfill(1); !errors.Is(err, ErrInsufficientHold) {
		t.Fatalf("expected ErrInsufficientHold, got %v", err)
	}
}

func TestRestockOnlyTouchesAvailableAndTotal(t *testing.T) {
	b := NewBuckets(100)
	_ = b.Place(20)
	_ = b.Fulfill(5)
	hold, exhausted := b.OnHold, b.Exhausted
	total, avail := b.Total, b.Available

	if err := b.Restock(7); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if b.Total != total+7 || b.Available != avail+7 {
		t.Fatalf("restock did not add 7 to total/available: %+v", b)
	}
	if b.OnHold != hold || b.Exhausted != exhausted {
		t.Fatalf("restock touched hold/exhausted: %+v", b)
	}
	checkInvariant(t, b)
}

func TestNonPositiveQuantities(t *testing.T) {
	b := NewBuckets(10)
	for _, op := range []Op{OpPlace, OpCancel, OpFulfill, OpRestock} {
		for _, qty := range []int{0, -3} {
			if err := b.Apply(op, qty); !errors.Is(err, ErrInvalidQuantity) {
				t.Fatalf("%s qty=%d: expected ErrInvalidQuantity, got %v", op, qty, err)
			}
		}
	}
}

// The lifecycle scenario: create 100, place 10, fulfill 10, restock 5.
func TestLifecycleScenario(t *testing.T) {
	b := NewBuckets(100)
	if b.Total != 100 || b.Available != 100 {
		t.Fatalf("after create: %+v", b)
	}

	if err := b.Place(10); err != nil {
		t.Fatalf("place: %v", err)
	}
	if b.Available != 90 || b.OnHold != 10 {
		t.Fatalf("after place: %+v", b)
	}

	if err := b.Fulfill(10); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if b.OnHold != 0 || b.Exhausted != 10 || b.Total != 90 {
		t.Fatalf("after fulfill: %+v", b)
	}

	if err := b.Restock(5); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if b.Total != 95 || b.Available != 95 {
		t.Fatalf("after restock: %+v", b)
	}
	checkInvariant(t, b)
}

func TestAddAggregatesVariantCounters(t *testing.T) {
	var agg Buckets
	variants := []Buckets{NewBuckets(10), NewBuckets(20), NewBuckets(0)}
	_ = variants[0].Place(3)
	_ = variants[1].Place(5)
	_ = variants[1].Fulfill(2)
	for _, v := range variants {
		checkInvariant(t, v)
		agg.Add(v)
	}
	checkInvariant(t, agg)
	if agg.Total != 28 || agg.OnHold != 6 || agg.Exhausted != 2 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
}

func TestUnknownOp(t *testing.T) {
	b := NewBuckets(1)
	if err := b.Apply(Op("Teleport"), 1); !errors.Is(err, ErrUnknownOp) {
		t.Fatalf("expected ErrUnknownOp, got %v", err)
	}
}
