package service

import "context"

// Health is a point-in-time component status.
type Health struct {
	Name    string
	Running bool
	Detail  string
}

// Service is the lifecycle contract every trading component implements.
// There is no shared base type; each component is an independent struct
// owning its own state and scheduled work.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() Health
}
