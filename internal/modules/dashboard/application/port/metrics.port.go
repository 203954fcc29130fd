package port

import "dashboardWs/internal/modules/dashboard/domain"

// MetricsRecorder receives counters from the dashboard use cases.
type MetricsRecorder interface {
	MessagePublished(kind domain.RxKind)
	PatchRejected(reason string)
	ActionReceived(accepted bool)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) MessagePublished(domain.RxKind) {}
func (NopMetrics) PatchRejected(string)           {}
func (NopMetrics) ActionReceived(bool)            {}
