package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu      sync.Mutex
	pending []prometheus.Collector
	done    bool
)

// register queues a collector from an init() in this package. Nothing is
// visible to Prometheus until MustRegister runs from the composition root.
func register(cs ...prometheus.Collector) {
	mu.Lock()
	defer mu.Unlock()
	pending = append(pending, cs...)
}

// MustRegister installs every queued collector on the default registry.
// Calling it again is a no-op.
func MustRegister() {
	mu.Lock()
	defer mu.Unlock()
	if done {
		return
	}
	done = true
	for _, c := range pending {
		prometheus.MustRegister(c)
	}
	pending = nil
}
