package results

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/SkothaSec/project-mimir/internal/alerts"
	"github.com/SkothaSec/project-mimir/internal/logger"
	"github.com/SkothaSec/project-mimir/internal/metrics"
	"github.com/SkothaSec/project-mimir/internal/pipeline"
)

// ViewModel owns the result state of one dashboard view. It fetches at most
// once; a new view gets a new ViewModel.
type ViewModel struct {
	source  pipeline.Source
	metrics *metrics.Metrics
	now     func() time.Time

	once  sync.Once
	state atomic.Pointer[State]
}

// Option configures a ViewModel.
type Option func(*ViewModel)

// WithMetrics records fetch and derivation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(vm *ViewModel) {
		vm.metrics = m
	}
}

// NewViewModel creates a view model in the Loading state.
func NewViewModel(source pipeline.Source, opts ...Option) *ViewModel {
	vm := &ViewModel{source: source, now: time.Now}
	for _, opt := range opts {
		opt(vm)
	}
	initial := LoadingState()
	vm.state.Store(&initial)
	return vm
}

// State returns a snapshot of the current state.
func (vm *ViewModel) State() State {
	s := *vm.state.Load()
	s.Records = slices.Clone(s.Records)
	return s
}

// Load performs the single fetch and returns the settled state. Later calls
// return the same state without fetching again.
func (vm *ViewModel) Load(ctx context.Context) State {
	vm.once.Do(func() {
		next := vm.fetch(ctx)
		vm.state.Store(&next)
	})
	return vm.State()
}

func (vm *ViewModel) fetch(ctx context.Context) State {
	if vm.source == nil {
		return FailedState("No results source is configured.")
	}

	name := vm.source.Name()
	start := vm.now()
	raws, err := vm.source.Fetch(ctx)
	elapsed := vm.now().Sub(start)
	if vm.metrics != nil {
		vm.metrics.ObserveFetch(name, err, elapsed)
	}
	if err != nil {
		logger.Errorf("Results fetch from %s failed: %v", name, err)
		return FailedState(failureMessage(err))
	}

	records, summary := alerts.DeriveBatch(raws)
	if vm.metrics != nil {
		for severity, n := range summary.BySeverity {
			vm.metrics.ObserveDerived(string(severity), n)
		}
		for shape, n := range summary.ByShape {
			vm.metrics.ObserveEvidenceShape(shape.String(), n)
		}
	}
	if n := summary.ByShape[alerts.ShapeMalformed]; n > 0 {
		logger.Debugf("%d record(s) from %s carry unparsable raw_logs", n, name)
	}
	logger.Infof("Loaded %d assessment record(s) from %s in %s", len(records), name, elapsed)
	return LoadedState(records)
}

func failureMessage(err error) string {
	msg := "Failed to load results: " + err.Error()
	if hints := errors.FlattenHints(err); hints != "" {
		msg += " (" + strings.ReplaceAll(hints, "\n", "; ") + ")"
	}
	return msg
}
