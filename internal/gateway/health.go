package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Upstream health states.
const (
	Healthy     = "healthy"
	Unhealthy   = "unhealthy"
	Unavailable = "unavailable"
)

const probeTimeout = 5 * time.Second

// Probe checks the /health endpoint of every route concurrently.
func Probe(ctx context.Context, client *http.Client, routes []Route) map[string]string {
	var (
		mu     sync.Mutex
		states = make(map[string]string, len(routes))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, route := range routes {
		g.Go(func() error {
			state := probe(ctx, client, route)
			mu.Lock()
			states[route.Name] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return states
}

func probe(ctx context.Context, client *http.Client, route Route) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, route.Upstream.String()+"/health", nil)
	if err != nil {
		return Unavailable
	}
	resp, err := client.Do(req)
	if err != nil {
		return Unavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Unhealthy
	}
	return Healthy
}
