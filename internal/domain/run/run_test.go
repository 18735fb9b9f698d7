package run

import "testing"

func TestExitCodes(t *testing.T) {
	tests := []struct {
		status Status
		code   int
		name   string
	}{
		{Exhausted, 99, "exhausted"},
		{OutsideWindow, 5, "outside_window"},
		{Interrupted, 3, "interrupted"},
		{ConnectivityFailure, 244, "connectivity_failure"},
		{ConfigError, 2, "config_error"},
		{Unexpected, 1, "unexpected"},
		{Status(42), 1, "unexpected"},
	}
	for _, tt := range tests {
		if got := tt.status.ExitCode(); got != tt.code {
			t.Errorf("%v.ExitCode() = %d, want %d", tt.status, got, tt.code)
		}
		if got := tt.status.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
}

func TestStats_Add(t *testing.T) {
	var s Stats
	s.Add(Stats{Batches: 1, Tagged: 3, Failed: 1})
	s.Add(Stats{Batches: 1, Tagged: 2, Skipped: 4})
	want := Stats{Batches: 2, Tagged: 5, Failed: 1, Skipped: 4}
	if s != want {
		t.Errorf("Stats = %+v, want %+v", s, want)
	}
}
