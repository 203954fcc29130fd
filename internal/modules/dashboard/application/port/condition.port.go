package port

import "dashboardWs/internal/modules/dashboard/domain"

// ConditionEvaluator decides Disabled conditions against the current document.
type ConditionEvaluator interface {
	Evaluate(expression string, doc domain.Document) (bool, error)
}
