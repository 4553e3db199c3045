package promadapters

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/provider-directory-go/directory/search"
)

const metricSearchTransitions = "directory_search_transitions_total"

// SearchObserver counts search state transitions by target state.
// A search that completed shows up under state "sorted", a failed one under "failed".
type SearchObserver struct {
	transitions *prometheus.CounterVec
}

// NewSearchObserver creates a SearchObserver and registers its counter on registerer.
func NewSearchObserver(registerer prometheus.Registerer) (*SearchObserver, error) {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricSearchTransitions,
		Help: "Provider searches entering a state",
	}, []string{"state"})

	if err := registerer.Register(transitions); err != nil {
		return nil, err
	}

	return &SearchObserver{transitions: transitions}, nil
}

// Observe implements search.StateObserver.
func (o *SearchObserver) Observe(_ context.Context, t search.Transition) {
	o.transitions.WithLabelValues(t.To.String()).Inc()
}

var _ search.StateObserver = (*SearchObserver)(nil).Observe
