package order

import (
	"slices"
	"strings"
	"sync"

	"github.com/Additional-Code/byteristo/internal/dto"
)

// Board keeps the kitchen's view of orders that still need work.
type Board struct {
	mu     sync.RWMutex
	orders map[string]dto.OrderResponse
}

// NewBoard returns an empty Board.
func NewBoard() *Board {
	return &Board{orders: make(map[string]dto.OrderResponse)}
}

// Apply folds an event into the board. It reports whether the order is
// still on the board afterwards.
func (b *Board) Apply(event dto.OrderEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := event.Data.ID
	if event.EventType == "order.deleted" || closed(event.Data.Status) {
		delete(b.orders, id)
		return false
	}

	if current, ok := b.orders[id]; ok && current.UpdatedAt.After(event.Data.UpdatedAt) {
		return true
	}
	b.orders[id] = event.Data
	return true
}

// Active lists open orders, oldest first.
func (b *Board) Active() []dto.OrderResponse {
	b.mu.RLock()
	out := make([]dto.OrderResponse, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	b.mu.RUnlock()

	slices.SortFunc(out, func(a, c dto.OrderResponse) int {
		if n := a.CreatedAt.Compare(c.CreatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.OrderNumber, c.OrderNumber)
	})
	return out
}

// Len returns the number of open orders.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

func closed(status string) bool {
	switch status {
	case "delivered", "payed", "cancelled":
		return true
	}
	return false
}
