package ports

import "context"

// LeaderProbe reports whether this replica currently holds leadership for
// singleton periodic jobs. The probe is best effort: a brief window of
// double execution around leadership changes is tolerated because all job
// bodies are idempotent.
type LeaderProbe interface {
	IsLeader(ctx context.Context) (bool, error)
}

// Readiness reports whether the process has finished startup and may run
// scheduled work.
type Readiness interface {
	Ready() bool
}
