package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("dial tcp: connection refused")
	err := Wrap(CodeDependency, cause, "case service unreachable")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped cause lost")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("code = %s", err.Code())
	}
}

func TestAsThroughFmtWrap(t *testing.T) {
	inner := New(CodeStateConflict, "job already running")
	outer := fmt.Errorf("submitting job: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("As should find typed error in chain")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("code = %s", typed.Code())
	}
}

func TestAsNonTyped(t *testing.T) {
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("As should return nil for untyped errors")
	}
	if As(nil) != nil {
		t.Fatal("As(nil) should be nil")
	}
}

func TestMetadataFor(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidCase, http.StatusUnprocessableEntity},
		{CodeStateConflict, http.StatusUnprocessableEntity},
		{CodeIntegrity, http.StatusInternalServerError},
		{CodeIdempotency, http.StatusConflict},
		{Code("UNKNOWN_CODE"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad payload").WithDetails(map[string]string{"field": "case_id"})
	details, ok := err.Details().(map[string]string)
	if !ok || details["field"] != "case_id" {
		t.Fatalf("details = %#v", err.Details())
	}
}
