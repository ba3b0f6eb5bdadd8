package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

// Result indexes the available menu items by id.
type Result struct {
	items map[string]Item
}

// NewResult indexes items.
func NewResult(items []Item) Result {
	idx := make(map[string]Item, len(items))
	for _, item := range items {
		idx[item.ID] = item
	}
	return Result{items: idx}
}

// Lookup returns the available item with the given id.
func (r Result) Lookup(id string) (Item, bool) {
	item, ok := r.items[id]
	return item, ok
}

// Missing returns the ids that are not available, in input order without duplicates.
func (r Result) Missing(ids []string) []string {
	var missing []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := r.items[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Advisor performs the availability check during order creation. The check
// is advisory: when the menu service cannot be reached it reports ok=false
// and never returns an error.
type Advisor struct {
	client Client
	logger *zap.Logger
}

// NewAdvisor wraps a catalog client.
func NewAdvisor(client Client, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{client: client, logger: logger}
}

// Check fetches the available items. ok is false when availability could not
// be determined.
func (a *Advisor) Check(ctx context.Context, ids []string) (Result, bool) {
	if a == nil || a.client == nil {
		return Result{}, false
	}

	items, err := a.client.AvailableItems(ctx)
	if err != nil {
		unavailable := errorbank.Unavailable("menu availability could not be verified", errorbank.WithCause(err))
		a.logger.Warn("catalog check skipped",
			zap.Strings("menu_item_ids", ids),
			zap.String("kind", string(unavailable.Kind())),
			zap.Error(unavailable),
		)
		return Result{}, false
	}
	return NewResult(items), true
}
