package worker

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/messaging"
)

// HandlerRegistration binds a routing key pattern to a handler. Patterns use
// topic exchange syntax: "*" matches one word, "#" matches zero or more.
type HandlerRegistration struct {
	Pattern string
	Handler messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine runs a pool of consumers that route each message to the first
// registration whose pattern matches its routing key.
type Engine struct {
	client        messaging.Client
	logger        *zap.Logger
	workers       config.Worker
	enabled       bool
	registrations []HandlerRegistration

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewEngine drops registrations without a pattern or handler.
func NewEngine(p Params) *Engine {
	var regs []HandlerRegistration
	for _, r := range p.Registrations {
		if r.Pattern != "" && r.Handler != nil {
			regs = append(regs, r)
		}
	}

	return &Engine{
		client:        p.Client,
		logger:        p.Logger.Named("worker"),
		workers:       p.Config.Messaging.Workers,
		enabled:       p.Config.Messaging.Enabled && p.Config.Messaging.Workers.Enabled,
		registrations: regs,
	}
}

// Module wires the engine into Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.StartStopHook(engine.start, engine.stop))
	}),
)

func (e *Engine) start(context.Context) error {
	switch {
	case !e.enabled:
		e.logger.Info("worker engine disabled")
		return nil
	case len(e.registrations) == 0:
		e.logger.Info("no order event handlers registered")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.group, ctx = errgroup.WithContext(ctx)

	n := max(e.workers.Concurrency, 1)
	for id := range n {
		e.group.Go(func() error {
			e.run(ctx, id)
			return nil
		})
	}

	e.logger.Info("worker engine started", zap.Int("consumers", n), zap.String("topic", e.client.Topic()))
	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	done := make(chan error, 1)
	go func() { done <- e.group.Wait() }()

	select {
	case err := <-done:
		e.logger.Info("worker engine stopped")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch hands msg to the first registration whose pattern matches its
// routing key. Unmatched messages are dropped.
func (e *Engine) Dispatch(ctx context.Context, msg messaging.Message) error {
	for _, r := range e.registrations {
		if Match(r.Pattern, msg.RoutingKey) {
			return r.Handler(ctx, msg)
		}
	}
	e.logger.Warn("no handler for routing key", zap.String("routing_key", msg.RoutingKey))
	return nil
}

// run consumes until ctx ends, pausing with a doubling delay after each
// failed consume.
func (e *Engine) run(ctx context.Context, id int) {
	delay := e.workers.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	logger := e.logger.With(zap.Int("consumer", id))

	for ctx.Err() == nil {
		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			logger.Debug("order event received", zap.String("routing_key", msg.RoutingKey))
			return e.Dispatch(msgCtx, msg)
		})
		if err == nil || ctx.Err() != nil {
			return
		}

		logger.Error("consume failed, retrying", zap.Duration("delay", delay), zap.Error(err))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = min(delay*2, max(e.workers.MaxRetryDelay, delay))
	}
}

// Match reports whether key satisfies a topic exchange pattern.
func Match(pattern, key string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(key); i++ {
			if matchWords(pattern[1:], key[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(key) > 0 && matchWords(pattern[1:], key[1:])
	default:
		return len(key) > 0 && pattern[0] == key[0] && matchWords(pattern[1:], key[1:])
	}
}
