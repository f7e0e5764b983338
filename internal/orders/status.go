package orders

type Status string

const (
	StatusCreated       Status = "CREATED"
	StatusStockReserved Status = "STOCK_RESERVED"
	StatusCompleted     Status = "COMPLETED"
	StatusCancelled     Status = "CANCELLED"
	StatusFailed        Status = "FAILED"
)

// Orders without ledger items stay CREATED, so completion and
// cancellation are reachable from both CREATED and STOCK_RESERVED.
var validNext = map[Status]map[Status]bool{
	StatusCreated:       {StatusStockReserved: true, StatusCompleted: true, StatusCancelled: true, StatusFailed: true},
	StatusStockReserved: {StatusCompleted: true, StatusCancelled: true, StatusFailed: true},
	StatusCompleted:     {},
	StatusCancelled:     {},
	StatusFailed:        {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
