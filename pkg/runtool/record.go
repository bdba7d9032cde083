package runtool

import "time"

// InvocationRecord is a read-only snapshot of one completed invocation.
// Records are held in memory only and never persisted.
type InvocationRecord struct {
	ID       string
	Tool     string
	Argv     []string
	Started  time.Time
	Finished time.Time
	ExitCode int
	Output   string
}

// Duration returns how long the process ran.
func (r InvocationRecord) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
