package ledger

// Buckets tracks one batch of units across the four quantity states.
// Invariant: Total == Available + OnHold, all counters non-negative.
// Exhausted counts units fulfilled over the lifetime of the batch; those
// units have left tracked inventory, so they are not part of Total.
type Buckets struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	OnHold    int `json:"on_hold"`
	Exhausted int `json:"exhausted"`
}

// NewBuckets returns buckets for freshly received units: everything available.
func NewBuckets(total int) Buckets {
	return Buckets{Total: total, Available: total}
}

// Check reports whether the sum identity holds.
func (b Buckets) Check() error {
	if b.Total < 0 || b.Available < 0 || b.OnHold < 0 || b.Exhausted < 0 {
		return ErrInvalidQuantity
	}
	if b.Total != b.Available+b.OnHold {
		return ErrInvariantBroken
	}
	return nil
}

// Place moves qty units available -> on_hold.
func (b *Buckets) Place(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if b.Available < qty {
		return ErrInsufficientStock
	}
	b.Available -= qty
	b.OnHold += qty
	return nil
}

// Cancel reverses Place: on_hold -> available.
func (b *Buckets) Cancel(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if b.OnHold < qty {
		return ErrInsufficientHold
	}
	b.OnHold -= qty
	b.Available += qty
	return nil
}

// Fulfill consumes held units: on_hold -> exhausted, total shrinks.
// Fulfilled units leave tracked inventory; there is no inverse operation.
func (b *Buckets) Fulfill(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if b.OnHold < qty {
		return ErrInsufficientHold
	}
	b.OnHold -= qty
	b.Exhausted += qty
	b.Total -= qty
	return nil
}

// Restock adds qty new units to available and total.
func (b *Buckets) Restock(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	b.Total += qty
	b.Available += qty
	return nil
}

// Add folds another bucket set into b. Used to aggregate variant counters
// into their parent stock.
func (b *Buckets) Add(o Buckets) {
	b.Total += o.Total
	b.Available += o.Available
	b.OnHold += o.OnHold
	b.Exhausted += o.Exhausted
}

// Apply dispatches to the bucket operation for op.
func (b *Buckets) Apply(op Op, qty int) error {
	switch op {
	case OpPlace:
		return b.Place(qty)
	case OpCancel:
		return b.Cancel(qty)
	case OpFulfill:
		return b.Fulfill(qty)
	case OpRestock:
		return b.Restock(qty)
	default:
		return ErrUnknownOp
	}
}

// Op identifies a ledger mutation.
type Op string

const (
	OpPlace   Op = "Place"
	OpCancel  Op = "Cancel"
	OpFulfill Op = "Fulfill"
	OpRestock Op = "Restock"
)
