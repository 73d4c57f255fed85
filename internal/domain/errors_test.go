package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("connection refused")

	cases := []struct {
		err  error
		want string
	}{
		{&OptimizationError{Kind: KindService, Msg: "No workers"}, "optimize routes: service: No workers"},
		{&OptimizationError{Kind: KindTransport, Msg: "call optimizer", Err: cause}, "optimize routes: transport: call optimizer: connection refused"},
		{&GeocodeError{Kind: KindMalformed, Msg: "bad length"}, "geocode: malformed response: bad length"},
		{&PersistenceError{Op: "insert route", WorkerID: "w1", Err: cause}, "save routes: insert route worker_id=w1: connection refused"},
		{&ValidationError{Field: "route_date", Msg: "route date is required"}, "route_date: route date is required"},
		{&ValidationError{Msg: "bare"}, "bare"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&PersistenceError{Op: "commit", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("PersistenceError does not unwrap to its cause")
	}
	if !strings.Contains(RemoteErrorKind(0).String(), "unknown") {
		t.Fatalf("zero kind should stringify as unknown")
	}
}
