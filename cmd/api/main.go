package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/byteristo/internal/app"
)

func main() {
	fx.New(app.Orders).Run()
}
