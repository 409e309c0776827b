// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
)

func TestFromHTTPStatusClassification(t *testing.T) {
	cases := []struct {
		status      int
		wantCode    ErrorCode
		recoverable bool
	}{
		{429, CodeRateLimited, true},
		{408, CodeTimeout, true},
		{500, CodeRemote, true},
		{503, CodeRemote, true},
		{400, CodeInvalidInput, false},
		{401, CodeUnauthorized, false},
		{403, CodeUnauthorized, false},
		{404, CodeNotFound, false},
		{422, CodeInvalidInput, false},
	}
	for _, tc := range cases {
		err := FromHTTPStatus(tc.status, "remote call failed")
		if err.Code != tc.wantCode {
			t.Errorf("status %d: expected code %s, got %s", tc.status, tc.wantCode, err.Code)
		}
		if err.Recoverable != tc.recoverable {
			t.Errorf("status %d: expected recoverable=%v", tc.status, tc.recoverable)
		}
		if err.StatusCode != tc.status {
			t.Errorf("status %d: status code not recorded, got %d", tc.status, err.StatusCode)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error must not be transient")
	}
	if !IsTransient(New(CodeConnection, "dial failed", nil)) {
		t.Error("connection error should be transient")
	}
	if IsTransient(New(CodeInvalidInput, "bad request", nil)) {
		t.Error("invalid input should not be transient")
	}
	if IsTransient(context.Canceled) {
		t.Error("context cancellation must never be transient")
	}
	if IsTransient(stderrors.New("opaque failure")) {
		t.Error("untyped errors default to permanent")
	}
}

func TestIsTransientWrapped(t *testing.T) {
	inner := New(CodeRemote, "server error", nil)
	wrapped := fmt.Errorf("listing files: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("wrapped transient error should remain transient")
	}
}

func TestTimeoutWrappingDeadlineStaysTransient(t *testing.T) {
	// An attempt timeout wraps context.DeadlineExceeded; it must classify
	// as transient, not as a cancellation.
	err := New(CodeTimeout, "attempt exceeded timeout", context.DeadlineExceeded)
	if !IsTransient(err) {
		t.Error("timeout must be transient")
	}
	if IsCancelled(err) {
		t.Error("timeout must not read as cancellation")
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(context.Canceled) {
		t.Error("context.Canceled should be cancelled")
	}
	if !IsCancelled(New(CodeCancelled, "run aborted", context.Canceled)) {
		t.Error("CodeCancelled should be cancelled")
	}
	if IsCancelled(New(CodeRemote, "server error", nil)) {
		t.Error("remote error is not a cancellation")
	}
}

func TestUnwrapChain(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := New(CodeConnection, "request failed", cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should traverse to the cause")
	}
	var ae *AgentError
	if !stderrors.As(fmt.Errorf("wrap: %w", err), &ae) {
		t.Fatal("errors.As should find the AgentError")
	}
	if ae.Code != CodeConnection {
		t.Errorf("expected CodeConnection, got %s", ae.Code)
	}
}

func TestWithContextChaining(t *testing.T) {
	err := New(CodeRemote, "task create failed", nil).
		WithContext("portal", "portal-7").
		WithContext("attempt", 2)
	if err.Context["portal"] != "portal-7" {
		t.Errorf("expected portal context, got %v", err.Context["portal"])
	}
	if err.Context["attempt"] != 2 {
		t.Errorf("expected attempt context, got %v", err.Context["attempt"])
	}
}

func TestCode(t *testing.T) {
	if got := Code(New(CodeTimeout, "slow", nil)); got != CodeTimeout {
		t.Errorf("expected CodeTimeout, got %s", got)
	}
	if got := Code(stderrors.New("opaque")); got != CodeInternal {
		t.Errorf("expected CodeInternal for untyped error, got %s", got)
	}
}
