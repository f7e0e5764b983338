package orders

import "testing"

func TestStatusTransitions(t *testing.T) {
	allowed := [][2]Status{
		{StatusCreated, StatusStockReserved},
		{StatusCreated, StatusCompleted},
		{StatusCreated, StatusCancelled},
		{StatusCreated, StatusFailed},
		{StatusStockReserved, StatusCompleted},
		{StatusStockReserved, StatusCancelled},
		{StatusStockReserved, StatusFailed},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}

	denied := [][2]Status{
		{StatusCompleted, StatusCreated},
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusStockReserved},
		{StatusFailed, StatusStockReserved},
		{StatusStockReserved, StatusCreated},
	}
	for _, tr := range denied {
		if CanTransition(tr[0], tr[1]) {
			t.Errorf("expected %s -> %s to be denied", tr[0], tr[1])
		}
	}
}
