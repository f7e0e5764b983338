package ledger

import "errors"

var (
	ErrStockNotFound     = errors.New("stock not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInsufficientHold  = errors.New("insufficient on-hold quantity")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvariantBroken   = errors.New("quantity buckets do not sum to total")
	ErrNoVariants        = errors.New("stock requires at least one variant")
	ErrDuplicateVariant  = errors.New("duplicate size/color variant")
	ErrUnknownOp         = errors.New("unknown ledger operation")
)
