package seeder

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	menusvc "github.com/Additional-Code/byteristo/internal/service/menu"
)

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	menu   *menusvc.Service
	logger *zap.Logger
}

// New constructs a Seeder writing through the menu service.
func New(menu *menusvc.Service, logger *zap.Logger) *Seeder {
	return &Seeder{menu: menu, logger: logger}
}

// MenuSamples returns the starter catalog.
func MenuSamples() []menusvc.CreateInput {
	item := func(name, description, price, category string, prep int, allergens []string, info map[string]any) menusvc.CreateInput {
		p := decimal.RequireFromString(price)
		return menusvc.CreateInput{
			Name:            name,
			Description:     &description,
			Price:           &p,
			Category:        category,
			PreparationTime: &prep,
			Allergens:       allergens,
			NutritionalInfo: info,
		}
	}

	return []menusvc.CreateInput{
		item("Pizza Margherita", "Pizza classica con pomodoro, mozzarella e basilico fresco", "8.50", "main", 15,
			[]string{"glutine", "latticini"}, map[string]any{"calories": 280, "protein": 12, "carbs": 35, "fat": 10}),
		item("Spaghetti Carbonara", "Spaghetti con guanciale, uova e pecorino romano", "12.00", "main", 20,
			[]string{"glutine", "uova"}, map[string]any{"calories": 450, "protein": 18, "carbs": 55, "fat": 18}),
		item("Caprese", "Antipasto con mozzarella di bufala, pomodori e basilico", "9.00", "appetizer", 5,
			[]string{"latticini"}, map[string]any{"calories": 200, "protein": 15, "carbs": 8, "fat": 14}),
	}
}

// Menu seeds the sample catalog when the menu is empty. It returns the
// number of items written.
func (s *Seeder) Menu(ctx context.Context) (int, error) {
	existing, err := s.menu.List(ctx, menusvc.ListInput{})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		s.logger.Info("menu already populated; skipping seed", zap.Int("items", len(existing)))
		return 0, nil
	}

	samples := MenuSamples()
	for _, sample := range samples {
		if _, err := s.menu.Create(ctx, sample); err != nil {
			return 0, fmt.Errorf("seed %q: %w", sample.Name, err)
		}
	}

	s.logger.Info("seeded menu items", zap.Int("count", len(samples)))
	return len(samples), nil
}
