package redisx

import "time"

const (
	// Idempotent order creation: idem:order:create:{external_id} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Order status cache: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Stock snapshot cache: stock:{stock_id} -> serialized stock + variants
	KeyStockSnapshot = "stock:%s"

	// Event dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLStockCache  = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
