package deploy

import "testing"

func TestAggregate(t *testing.T) {
	ok := Result{Status: StatusSuccess}
	fail := Result{Status: StatusFailure}
	timeout := Result{Status: StatusTimeout}

	cases := []struct {
		name    string
		results []Result
		want    AggregateStatus
	}{
		{"empty fleet", nil, AggregateSuccess},
		{"all success", []Result{ok, ok, ok}, AggregateSuccess},
		{"all failed", []Result{fail, timeout}, AggregateFailed},
		{"partial", []Result{ok, fail}, AggregateDegraded},
		{"timeout counts as failure", []Result{ok, timeout}, AggregateDegraded},
	}
	for _, tc := range cases {
		if got := Aggregate(tc.results); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestExitCodes(t *testing.T) {
	cases := map[AggregateStatus]int{
		AggregateSuccess:     0,
		AggregateDegraded:    2,
		AggregateFailed:      3,
		AggregateInterrupted: 4,
	}
	for status, want := range cases {
		if got := status.ExitCode(); got != want {
			t.Errorf("%s: exit code %d, want %d", status, got, want)
		}
	}
}
