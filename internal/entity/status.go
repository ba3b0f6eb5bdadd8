package entity

// OrderStatus enumerates the states an order moves through.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderPayed     OrderStatus = "payed"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every order status in typical progression order.
var OrderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderDelivered, OrderPayed, OrderCancelled,
}

// ActiveOrderStatuses backs the synthetic "active" listing filter.
var ActiveOrderStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing}

// Valid reports whether s is a recognised order status.
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (s OrderStatus) Terminal() bool {
	return s == OrderPayed || s == OrderCancelled
}

// ItemStatus enumerates the states of a single order line.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
	ItemCancelled ItemStatus = "cancelled"
)

// ItemStatuses lists every item status.
var ItemStatuses = []ItemStatus{ItemPending, ItemPreparing, ItemReady, ItemServed, ItemCancelled}

// Valid reports whether s is a recognised item status.
func (s ItemStatus) Valid() bool {
	for _, v := range ItemStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Done reports whether the item has left the kitchen.
func (s ItemStatus) Done() bool {
	return s == ItemReady || s == ItemServed
}

// OrderType is the service mode of an order.
type OrderType string

const (
	DineIn   OrderType = "dine_in"
	Takeout  OrderType = "takeout"
	Delivery OrderType = "delivery"
)

// OrderTypes lists every order type.
var OrderTypes = []OrderType{DineIn, Takeout, Delivery}

// Valid reports whether t is a recognised order type.
func (t OrderType) Valid() bool {
	for _, v := range OrderTypes {
		if t == v {
			return true
		}
	}
	return false
}
