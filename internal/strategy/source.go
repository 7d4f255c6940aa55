package strategy

import "main/internal/model"

// Source is a stateless strategy evaluator: a window of observations in,
// zero or more signals out. Failures are isolated by the caller and never
// abort the cycle.
type Source interface {
	ID() string
	Evaluate(cfg model.SourceConfig, window []model.Observation) ([]model.Signal, error)
}
