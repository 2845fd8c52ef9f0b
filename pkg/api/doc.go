/*
Package api implements the engine's operational HTTP surface.

The endpoints exist for the people and machines that run the engine, not for
its monitoring output (alerts travel through pkg/alert). A deployment points
its load balancer health checks, Kubernetes probes and Prometheus scraper
here:

	GET /health   overall component health, 503 when any component is unhealthy
	GET /ready    readiness, 503 until the state store and fleet list are usable
	GET /live     trivial liveness, 200 whenever the process responds
	GET /status   fleet summary: size, failing clusters, version
	GET /metrics  Prometheus metrics

/health, /ready and /live are served straight from pkg/metrics' component
registry; the engine registers its "state" and "fleet" components during
startup and flips them as passes succeed or fail. /status additionally asks
the dispatcher for its current fleet counters, so it reflects the most recent
pass rather than the process lifetime.

# Usage

	hs := api.NewHealthServer(dispatcher, version.Version)
	go func() {
		if err := hs.Start(":8080"); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Admin server failed.", err)
		}
	}()
	defer hs.Stop(ctx)

The server carries short read and write timeouts; every endpoint answers
from memory and none of them touch the clusters or AWS, so a slow response
here always means a stuck process, never a slow dependency.

# Integration Points

This package integrates with:

  - pkg/metrics: health registry, readiness rules and the Prometheus handler
  - pkg/dispatch: the Dispatcher satisfies metrics.StatsSource for /status
  - cmd/ontapwatch: starts the server next to the dispatcher in daemon mode
*/
package api
