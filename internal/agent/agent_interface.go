package agent

// Runner is the job contract the submission workflow depends on.
type Runner interface {
	// Trigger starts a job for userID unless one is already pending.
	Trigger(userID int64) (TriggerResult, error)

	// Peek reports the latest result for userID without consuming it.
	Peek(userID int64) Status

	// Done returns a channel that is closed once a result for userID is
	// available. It is already closed if a result exists, and nil when no
	// job is pending.
	Done(userID int64) <-chan struct{}
}

// Ensure Simulator implements Runner.
var _ Runner = (*Simulator)(nil)
