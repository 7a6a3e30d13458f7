package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	cases := []struct {
		code ErrorCode
		want int
	}{
		{SubmissionNotFound, http.StatusNotFound},
		{RecordNotFound, http.StatusNotFound},
		{NotFound, http.StatusNotFound},
		{InvalidParams, http.StatusBadRequest},
		{ValidationFailed, http.StatusBadRequest},
		{RequiredFieldEmpty, http.StatusBadRequest},
		{CodeTooLarge, http.StatusRequestEntityTooLarge},
		{JudgeUnavailable, http.StatusServiceUnavailable},
		{JudgeTokenMissing, http.StatusServiceUnavailable},
		{ServiceUnavailable, http.StatusServiceUnavailable},
		{InternalServerError, http.StatusInternalServerError},
		{DatabaseError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("code %d: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, JudgeUnavailable)
	if !Is(err, JudgeUnavailable) {
		t.Fatalf("expected JudgeUnavailable, got %v", err)
	}
	if err.Unwrap() != cause {
		t.Fatalf("expected cause preserved, got %v", err.Unwrap())
	}
}

func TestGetErrorFallsBackToInternal(t *testing.T) {
	t.Parallel()
	err := GetError(fmt.Errorf("plain failure"))
	if err.Code != InternalServerError {
		t.Fatalf("expected InternalServerError, got %d", err.Code)
	}
}

func TestGetCode(t *testing.T) {
	t.Parallel()
	if code := GetCode(New(SubmissionNotFound)); code != SubmissionNotFound {
		t.Fatalf("expected SubmissionNotFound, got %d", code)
	}
	if code := GetCode(nil); code != Success {
		t.Fatalf("expected Success for nil, got %d", code)
	}
	if code := GetCode(fmt.Errorf("plain")); code != InternalServerError {
		t.Fatalf("expected InternalServerError for plain error, got %d", code)
	}
}

func TestWithDetail(t *testing.T) {
	t.Parallel()
	err := New(InvalidParams).WithDetail("field", "username")
	if err.Details["field"] != "username" {
		t.Fatalf("expected detail set, got %v", err.Details)
	}
}
