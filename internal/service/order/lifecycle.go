package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/byteristo/internal/entity"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

// DefaultPaymentMethod is recorded when the caller names none.
const DefaultPaymentMethod = "cash"

// CreateInput describes a new order submission.
type CreateInput struct {
	TableNumber         int
	Type                entity.OrderType
	CustomerName        *string
	SpecialInstructions *string
	Items               []ItemInput
}

// ItemInput is one submitted order line. PreparationTime is an optional hint
// in minutes.
type ItemInput struct {
	MenuItemID          string
	MenuItemName        string
	Quantity            int
	UnitPrice           *decimal.Decimal
	TotalPrice          *decimal.Decimal
	SpecialInstructions *string
	PreparationTime     *int
}

// Validate checks the submission and reports every violation at once.
func (in CreateInput) Validate() error {
	var problems []string
	if in.TableNumber <= 0 {
		problems = append(problems, "table_number must be a positive integer")
	}
	if !in.Type.Valid() {
		problems = append(problems, fmt.Sprintf("order_type must be one of: %s", joinTypes()))
	}
	if len(in.Items) == 0 {
		problems = append(problems, "items must contain at least one item")
	}
	for i, item := range in.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.MenuItemID) == "" {
			problems = append(problems, prefix+".menu_item_id is required")
		}
		if strings.TrimSpace(item.MenuItemName) == "" {
			problems = append(problems, prefix+".menu_item_name is required")
		}
		if item.Quantity <= 0 {
			problems = append(problems, prefix+".quantity must be greater than 0")
		}
		switch {
		case item.UnitPrice == nil:
			problems = append(problems, prefix+".unit_price is required")
		case item.UnitPrice.IsNegative():
			problems = append(problems, prefix+".unit_price must not be negative")
		}
		switch {
		case item.TotalPrice == nil:
			problems = append(problems, prefix+".total_price is required")
		case item.TotalPrice.IsNegative():
			problems = append(problems, prefix+".total_price must not be negative")
		}
		if item.PreparationTime != nil && *item.PreparationTime < 0 {
			problems = append(problems, prefix+".preparation_time must not be negative")
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errorbank.BadRequest("Validation error", errorbank.WithDetail("errors", problems))
}

// MenuItemIDs returns the referenced catalog ids in submission order.
func (in CreateInput) MenuItemIDs() []string {
	ids := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		ids = append(ids, item.MenuItemID)
	}
	return ids
}

// Totals holds the derived monetary fields of a new order.
type Totals struct {
	Total    decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Final    decimal.Decimal
}

// ComputeTotals sums the submitted line totals. Tax and discount are zero
// and final = total - discount + tax.
func ComputeTotals(items []ItemInput) Totals {
	total := decimal.Zero
	for _, item := range items {
		if item.TotalPrice != nil {
			total = total.Add(*item.TotalPrice)
		}
	}
	t := Totals{Total: total, Tax: decimal.Zero, Discount: decimal.Zero}
	t.Final = t.Total.Sub(t.Discount).Add(t.Tax)
	return t
}

// EstimateCompletion returns now + the longest preparation time + buffer.
// Lines without a hint count as fallback.
func EstimateCompletion(now time.Time, hints []time.Duration, fallback, buffer time.Duration) time.Time {
	longest := time.Duration(0)
	if len(hints) == 0 {
		longest = fallback
	}
	for _, h := range hints {
		if h <= 0 {
			h = fallback
		}
		if h > longest {
			longest = h
		}
	}
	return now.Add(longest + buffer)
}

// cascadedItemStatus is what a pending item becomes when the order moves to
// target, or false when the target does not cascade.
func cascadedItemStatus(target entity.OrderStatus) (entity.ItemStatus, bool) {
	switch target {
	case entity.OrderPreparing:
		return entity.ItemPreparing, true
	case entity.OrderReady:
		return entity.ItemReady, true
	case entity.OrderDelivered:
		return entity.ItemServed, true
	default:
		return "", false
	}
}

// ApplyOrderStatus sets the order status and advances every item that is
// still pending when the target cascades. Items already moved individually
// keep their status.
func ApplyOrderStatus(o *entity.Order, target entity.OrderStatus, now time.Time) {
	o.Status = target
	o.UpdatedAt = now

	itemStatus, ok := cascadedItemStatus(target)
	if !ok {
		return
	}
	for _, item := range o.Items {
		if item.Status != entity.ItemPending {
			continue
		}
		item.Status = itemStatus
		item.UpdatedAt = now
	}
}

// ApplyItemStatus updates a single line and rolls the order up to ready when
// every line is ready or served. It reports whether the roll-up fired.
func ApplyItemStatus(o *entity.Order, item *entity.OrderItem, status entity.ItemStatus, now time.Time) bool {
	item.Status = status
	item.UpdatedAt = now
	o.UpdatedAt = now

	done := 0
	for _, it := range o.Items {
		if it.Status.Done() {
			done++
		}
	}
	if done == len(o.Items) && o.Status != entity.OrderReady {
		o.Status = entity.OrderReady
		return true
	}
	return false
}

// strictNext is the forward edge of the strict transition graph.
var strictNext = map[entity.OrderStatus]entity.OrderStatus{
	entity.OrderPending:   entity.OrderConfirmed,
	entity.OrderConfirmed: entity.OrderPreparing,
	entity.OrderPreparing: entity.OrderReady,
	entity.OrderReady:     entity.OrderDelivered,
	entity.OrderDelivered: entity.OrderPayed,
}

// CheckTransition enforces the transition policy. In permissive mode any
// recognised status may follow any other.
func CheckTransition(strict bool, from, to entity.OrderStatus) error {
	if !strict || from == to {
		return nil
	}
	if to == entity.OrderCancelled && !from.Terminal() {
		return nil
	}
	if next, ok := strictNext[from]; ok && next == to {
		return nil
	}
	return errorbank.BadRequest(
		fmt.Sprintf("Invalid status transition from %s to %s", from, to),
		errorbank.WithDetail("from", string(from)),
		errorbank.WithDetail("to", string(to)),
	)
}

// ParseOrderStatus validates a requested order status.
func ParseOrderStatus(raw string) (entity.OrderStatus, error) {
	if raw == "" {
		return "", errorbank.BadRequest("Status is required")
	}
	status := entity.OrderStatus(raw)
	if !status.Valid() {
		names := make([]string, 0, len(entity.OrderStatuses))
		for _, s := range entity.OrderStatuses {
			names = append(names, string(s))
		}
		return "", errorbank.BadRequest("Invalid status. Must be one of: " + strings.Join(names, ", "))
	}
	return status, nil
}

// ParseItemStatus validates a requested item status.
func ParseItemStatus(raw string) (entity.ItemStatus, error) {
	if raw == "" {
		return "", errorbank.BadRequest("Status is required")
	}
	status := entity.ItemStatus(raw)
	if !status.Valid() {
		names := make([]string, 0, len(entity.ItemStatuses))
		for _, s := range entity.ItemStatuses {
			names = append(names, string(s))
		}
		return "", errorbank.BadRequest("Invalid status. Must be one of: " + strings.Join(names, ", "))
	}
	return status, nil
}

// Payment is the summary of a settled order.
type Payment struct {
	Method string
	Amount decimal.Decimal
	Change decimal.Decimal
}

// Settle validates a payment against the order's current state. The order is
// not modified.
func Settle(o *entity.Order, method string, amount *string) (Payment, error) {
	if o.Status != entity.OrderReady && o.Status != entity.OrderDelivered {
		return Payment{}, errorbank.BadRequest(
			fmt.Sprintf("Order must be ready or delivered to be paid. Current status: %s", o.Status),
			errorbank.WithDetail("status", string(o.Status)),
		)
	}

	method = strings.TrimSpace(method)
	if method == "" {
		method = DefaultPaymentMethod
	}
	payment := Payment{Method: method, Amount: o.FinalAmount, Change: decimal.Zero}

	if amount == nil {
		return payment, nil
	}
	paid, err := decimal.NewFromString(strings.TrimSpace(*amount))
	if err != nil {
		return Payment{}, errorbank.BadRequest("Invalid payment amount", errorbank.WithCause(err))
	}
	if paid.LessThan(o.FinalAmount) {
		return Payment{}, errorbank.BadRequest(
			fmt.Sprintf("Payment amount (%s) is less than order total (%s)", paid.StringFixed(2), o.FinalAmount.StringFixed(2)),
			errorbank.WithDetail("payment_amount", paid.StringFixed(2)),
			errorbank.WithDetail("final_amount", o.FinalAmount.StringFixed(2)),
		)
	}
	payment.Change = paid.Sub(o.FinalAmount)
	return payment, nil
}

// CheckDeletable refuses deletion unless the order is pending or cancelled.
func CheckDeletable(o *entity.Order) error {
	if o.Status == entity.OrderPending || o.Status == entity.OrderCancelled {
		return nil
	}
	return errorbank.BadRequest(
		"Can only delete pending or cancelled orders",
		errorbank.WithDetail("status", string(o.Status)),
	)
}

func joinTypes() string {
	names := make([]string, 0, len(entity.OrderTypes))
	for _, t := range entity.OrderTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
