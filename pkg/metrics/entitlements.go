package metrics

import "github.com/prometheus/client_golang/prometheus"

// EntitlementMetrics counts resolver outcomes per action.
type EntitlementMetrics struct {
	decisions *prometheus.CounterVec
}

func NewEntitlementMetrics(reg prometheus.Registerer) *EntitlementMetrics {
	if reg == nil {
		return &EntitlementMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entitlement_decisions_total",
		Help:      "Entitlement decisions by action and outcome.",
	}, []string{"action", "outcome", "reason"})
	reg.MustRegister(decisions)
	return &EntitlementMetrics{decisions: decisions}
}

// Record counts one decision. Allowed decisions carry an empty reason.
func (e *EntitlementMetrics) Record(action string, allowed bool, reason string) {
	if e == nil || e.decisions == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
		reason = ""
	}
	e.decisions.WithLabelValues(normalizeLabel(action), outcome, reason).Inc()
}
