package run

// Status is the terminal state of a tagging run.
type Status int

const (
	// Exhausted means no more documents match the selection predicate.
	Exhausted Status = iota
	// OutsideWindow means the run stopped because working hours began.
	OutsideWindow
	// Interrupted means the run was cancelled by a signal.
	Interrupted
	// ConnectivityFailure means the index could not be reached.
	ConnectivityFailure
	// ConfigError means the run was refused because of invalid input.
	ConfigError
	// Unexpected covers every other failure.
	Unexpected
)

// Process exit codes, one per Status.
const (
	ExitExhausted     = 99
	ExitOutsideWindow = 5
	ExitInterrupted   = 3
	ExitConnectivity  = 244
	ExitConfig        = 2
	ExitUnexpected    = 1
)

// ExitCode maps the status to a process exit code.
func (s Status) ExitCode() int {
	switch s {
	case Exhausted:
		return ExitExhausted
	case OutsideWindow:
		return ExitOutsideWindow
	case Interrupted:
		return ExitInterrupted
	case ConnectivityFailure:
		return ExitConnectivity
	case ConfigError:
		return ExitConfig
	default:
		return ExitUnexpected
	}
}

func (s Status) String() string {
	switch s {
	case Exhausted:
		return "exhausted"
	case OutsideWindow:
		return "outside_window"
	case Interrupted:
		return "interrupted"
	case ConnectivityFailure:
		return "connectivity_failure"
	case ConfigError:
		return "config_error"
	default:
		return "unexpected"
	}
}

// Stats accumulates counters over a run.
type Stats struct {
	Batches int
	Tagged  int
	Failed  int
	Skipped int
}

// Add merges another Stats into s.
func (s *Stats) Add(o Stats) {
	s.Batches += o.Batches
	s.Tagged += o.Tagged
	s.Failed += o.Failed
	s.Skipped += o.Skipped
}
