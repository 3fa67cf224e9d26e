package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindRetryable(t *testing.T) {
	cases := []struct {
		kind      ErrorKind
		retryable bool
	}{
		{ErrorKindNetwork, true},
		{ErrorKindTimeout, true},
		{ErrorKindRateLimited, true},
		{ErrorKindServer, true},
		{ErrorKindValidation, false},
		{ErrorKindUnknown, false},
	}
	for _, tc := range cases {
		if got := tc.kind.Retryable(); got != tc.retryable {
			t.Fatalf("%s.Retryable() = %v, expected %v", tc.kind, got, tc.retryable)
		}
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(NetworkError(errors.New("reset"))); got != ErrorKindNetwork {
		t.Fatalf("classified as %s, expected network", got)
	}
	wrapped := fmt.Errorf("stage fetch: %w", RateLimitedError(errors.New("status 429")))
	if got := Classify(wrapped); got != ErrorKindRateLimited {
		t.Fatalf("classified wrapped error as %s, expected rate-limited", got)
	}
	if got := Classify(context.DeadlineExceeded); got != ErrorKindTimeout {
		t.Fatalf("classified deadline as %s, expected timeout", got)
	}
	if got := Classify(errors.New("mystery")); got != ErrorKindUnknown {
		t.Fatalf("classified as %s, expected unknown", got)
	}
	if got := Classify(nil); got != ErrorKindUnknown {
		t.Fatalf("classified nil as %s, expected unknown", got)
	}
}

func TestStageErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NetworkError(cause)
	if err.Error() != "network: dial tcp: connection refused" {
		t.Fatalf("message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap to expose the cause")
	}
}
