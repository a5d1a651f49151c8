package definition

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jabolina/go-devs/pkg/devs/types"
)

// PrometheusListener is an optional, ready-made types.EventListener that
// records onOutput/onStateChange counts as Prometheus counters keyed by
// the LP field packed into the emitting model's ID (the owning LP only
// when the allocator assigns models by that field). It is never
// constructed implicitly, but it lives in package definition, which
// control imports, so client_golang is linked into any program that uses
// the Controller.
type PrometheusListener struct {
	outputs       *prometheus.CounterVec
	stateChanges  *prometheus.CounterVec
}

// NewPrometheusListener registers two counter vectors on reg (pass
// prometheus.NewRegistry() for an isolated registry in tests).
func NewPrometheusListener(reg prometheus.Registerer, namespace string) *PrometheusListener {
	l := &PrometheusListener{
		outputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_outputs_total",
			Help:      "Number of messages produced by output(), labeled by the model ID's LP field.",
		}, []string{"lp"}),
		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_state_changes_total",
			Help:      "Number of transitions applied to a model, labeled by the model ID's LP field.",
		}, []string{"lp"}),
	}
	reg.MustRegister(l.outputs, l.stateChanges)
	return l
}

func (l *PrometheusListener) OnOutput(model types.ModelRef, _ types.Message, _ types.Timestamp) {
	l.outputs.WithLabelValues(strconv.FormatUint(model.ID().LP(), 10)).Inc()
}

func (l *PrometheusListener) OnStateChange(model types.ModelRef, _ types.Timestamp) {
	l.stateChanges.WithLabelValues(strconv.FormatUint(model.ID().LP(), 10)).Inc()
}

var _ types.EventListener = (*PrometheusListener)(nil)
