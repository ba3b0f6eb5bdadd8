package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/byteristo/internal/entity"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validInput() CreateInput {
	return CreateInput{
		TableNumber: 4,
		Type:        entity.DineIn,
		Items: []ItemInput{
			{MenuItemID: "m1", MenuItemName: "Pizza Margherita", Quantity: 2, UnitPrice: dec("8.50"), TotalPrice: dec("17.00")},
			{MenuItemID: "m2", MenuItemName: "Caprese", Quantity: 1, UnitPrice: dec("9.00"), TotalPrice: dec("9.00")},
		},
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	in := CreateInput{
		TableNumber: 0,
		Type:        "drive_through",
		Items: []ItemInput{
			{Quantity: 0, UnitPrice: dec("-1")},
		},
	}

	err := in.Validate()
	require.Error(t, err)
	assert.True(t, errorbank.Is(err, errorbank.KindBadRequest))

	appErr := errorbank.From(err)
	assert.Equal(t, "Validation error", appErr.Message())
	problems, ok := appErr.Details()["errors"].([]string)
	require.True(t, ok)
	assert.Len(t, problems, 7)
}

func TestValidateEmptyItems(t *testing.T) {
	in := validInput()
	in.Items = nil

	err := in.Validate()
	require.Error(t, err)
	assert.Contains(t, errorbank.From(err).Details()["errors"], "items must contain at least one item")
}

func TestValidateAcceptsWellFormedInput(t *testing.T) {
	assert.NoError(t, validInput().Validate())
}

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals(validInput().Items)

	assert.True(t, totals.Total.Equal(decimal.RequireFromString("26.00")))
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Discount.IsZero())
	assert.True(t, totals.Final.Equal(totals.Total))
}

func TestEstimateCompletion(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fallback := 15 * time.Minute
	buffer := 5 * time.Minute

	assert.Equal(t, now.Add(25*time.Minute), EstimateCompletion(now, []time.Duration{20 * time.Minute, 5 * time.Minute}, fallback, buffer))
	assert.Equal(t, now.Add(20*time.Minute), EstimateCompletion(now, []time.Duration{0, 5 * time.Minute}, fallback, buffer))
	assert.Equal(t, now.Add(20*time.Minute), EstimateCompletion(now, nil, fallback, buffer))
}

func orderWithItems(status entity.OrderStatus, items ...entity.ItemStatus) *entity.Order {
	o := &entity.Order{ID: "o1", Status: status}
	for i, s := range items {
		o.Items = append(o.Items, &entity.OrderItem{ID: string(rune('a' + i)), Status: s})
	}
	return o
}

func itemStatuses(o *entity.Order) []entity.ItemStatus {
	out := make([]entity.ItemStatus, 0, len(o.Items))
	for _, item := range o.Items {
		out = append(out, item.Status)
	}
	return out
}

func TestApplyOrderStatusCascadesOnlyPendingItems(t *testing.T) {
	now := time.Now()

	cases := []struct {
		target entity.OrderStatus
		want   []entity.ItemStatus
	}{
		{entity.OrderReady, []entity.ItemStatus{entity.ItemReady, entity.ItemServed}},
		{entity.OrderPreparing, []entity.ItemStatus{entity.ItemPreparing, entity.ItemServed}},
		{entity.OrderDelivered, []entity.ItemStatus{entity.ItemServed, entity.ItemServed}},
		{entity.OrderConfirmed, []entity.ItemStatus{entity.ItemPending, entity.ItemServed}},
		{entity.OrderCancelled, []entity.ItemStatus{entity.ItemPending, entity.ItemServed}},
	}
	for _, tc := range cases {
		t.Run(string(tc.target), func(t *testing.T) {
			o := orderWithItems(entity.OrderConfirmed, entity.ItemPending, entity.ItemServed)
			ApplyOrderStatus(o, tc.target, now)

			assert.Equal(t, tc.target, o.Status)
			assert.Equal(t, tc.want, itemStatuses(o))
		})
	}
}

func TestApplyOrderStatusIsIdempotent(t *testing.T) {
	now := time.Now()
	o := orderWithItems(entity.OrderConfirmed, entity.ItemPending, entity.ItemPreparing)

	ApplyOrderStatus(o, entity.OrderReady, now)
	first := itemStatuses(o)
	ApplyOrderStatus(o, entity.OrderReady, now)

	assert.Equal(t, first, itemStatuses(o))
	assert.Equal(t, entity.OrderReady, o.Status)
}

func TestApplyItemStatusRollsUp(t *testing.T) {
	now := time.Now()

	single := orderWithItems(entity.OrderConfirmed, entity.ItemPending)
	assert.True(t, ApplyItemStatus(single, single.Items[0], entity.ItemServed, now))
	assert.Equal(t, entity.OrderReady, single.Status)

	pair := orderWithItems(entity.OrderPreparing, entity.ItemPreparing, entity.ItemPreparing)
	assert.False(t, ApplyItemStatus(pair, pair.Items[0], entity.ItemReady, now))
	assert.Equal(t, entity.OrderPreparing, pair.Status)
	assert.True(t, ApplyItemStatus(pair, pair.Items[1], entity.ItemServed, now))
	assert.Equal(t, entity.OrderReady, pair.Status)

	already := orderWithItems(entity.OrderReady, entity.ItemReady)
	assert.False(t, ApplyItemStatus(already, already.Items[0], entity.ItemServed, now))
	assert.Equal(t, entity.OrderReady, already.Status)
}

func TestApplyItemStatusCancelledBlocksRollUp(t *testing.T) {
	o := orderWithItems(entity.OrderPreparing, entity.ItemCancelled, entity.ItemPreparing)

	assert.False(t, ApplyItemStatus(o, o.Items[1], entity.ItemReady, time.Now()))
	assert.Equal(t, entity.OrderPreparing, o.Status)
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, CheckTransition(false, entity.OrderPayed, entity.OrderPending))

	assert.NoError(t, CheckTransition(true, entity.OrderPending, entity.OrderConfirmed))
	assert.NoError(t, CheckTransition(true, entity.OrderReady, entity.OrderDelivered))
	assert.NoError(t, CheckTransition(true, entity.OrderPreparing, entity.OrderCancelled))
	assert.NoError(t, CheckTransition(true, entity.OrderReady, entity.OrderReady))

	err := CheckTransition(true, entity.OrderPending, entity.OrderReady)
	require.Error(t, err)
	assert.True(t, errorbank.Is(err, errorbank.KindBadRequest))
	assert.Error(t, CheckTransition(true, entity.OrderPayed, entity.OrderCancelled))
}

func TestParseStatuses(t *testing.T) {
	_, err := ParseOrderStatus("")
	assert.EqualError(t, err, "Status is required")

	_, err = ParseOrderStatus("eaten")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid status. Must be one of: pending, confirmed")

	s, err := ParseOrderStatus("payed")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPayed, s)

	_, err = ParseItemStatus("delivered")
	assert.Error(t, err)

	is, err := ParseItemStatus("served")
	require.NoError(t, err)
	assert.Equal(t, entity.ItemServed, is)
}

func TestSettle(t *testing.T) {
	ready := &entity.Order{Status: entity.OrderReady, FinalAmount: decimal.RequireFromString("26.00")}
	str := func(s string) *string { return &s }

	p, err := Settle(ready, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPaymentMethod, p.Method)
	assert.True(t, p.Amount.Equal(ready.FinalAmount))
	assert.True(t, p.Change.IsZero())

	p, err = Settle(ready, "card", str("30"))
	require.NoError(t, err)
	assert.Equal(t, "card", p.Method)
	assert.Equal(t, "4.00", p.Change.StringFixed(2))

	_, err = Settle(ready, "cash", str("20.00"))
	require.Error(t, err)
	assert.Equal(t, "Payment amount (20.00) is less than order total (26.00)", errorbank.From(err).Message())

	_, err = Settle(ready, "cash", str("twenty"))
	require.Error(t, err)
	assert.Equal(t, "Invalid payment amount", errorbank.From(err).Message())

	pending := &entity.Order{Status: entity.OrderPending}
	_, err = Settle(pending, "cash", nil)
	require.Error(t, err)
	assert.Equal(t, "Order must be ready or delivered to be paid. Current status: pending", errorbank.From(err).Message())
}

func TestCheckDeletable(t *testing.T) {
	assert.NoError(t, CheckDeletable(&entity.Order{Status: entity.OrderPending}))
	assert.NoError(t, CheckDeletable(&entity.Order{Status: entity.OrderCancelled}))

	err := CheckDeletable(&entity.Order{Status: entity.OrderPreparing})
	require.Error(t, err)
	assert.Equal(t, "Can only delete pending or cancelled orders", errorbank.From(err).Message())
}
