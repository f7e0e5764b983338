package events

const (
	TopicOrderCreated  = "order.created"
	TopicStockReserved = "stock.reserved"
	TopicStockRejected = "stock.rejected"
	TopicStockMovement = "stock.movement"
)

// PartitionKey keeps all events for one aggregate (order or stock) on the
// same partition so consumers observe them in order.
func PartitionKey(id string) []byte { return []byte(id) }
