package fhir

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestNotFoundOutcome(t *testing.T) {
	oo := NotFoundOutcome("Patient", "abc")
	if oo.ResourceType != "OperationOutcome" {
		t.Errorf("expected OperationOutcome, got %s", oo.ResourceType)
	}
	if oo.Issue[0].Code != IssueTypeNotFound || oo.Issue[0].Severity != IssueSeverityError {
		t.Errorf("unexpected issue %+v", oo.Issue[0])
	}
	if oo.Issue[0].Diagnostics != "Patient/abc not found" {
		t.Errorf("unexpected diagnostics %q", oo.Issue[0].Diagnostics)
	}
}

func TestInvalidOutcome_Expression(t *testing.T) {
	oo := InvalidOutcome("patient is required", "patient")
	if len(oo.Issue[0].Expression) != 1 || oo.Issue[0].Expression[0] != "patient" {
		t.Errorf("expected expression [patient], got %v", oo.Issue[0].Expression)
	}
}

func runErrorHandler(t *testing.T, err error) (*httptest.ResponseRecorder, OperationOutcome) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/fhir/Patient/x", nil), rec)
	HTTPErrorHandler(zerolog.Nop())(err, c)

	var oo OperationOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &oo); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec, oo
}

func TestHTTPErrorHandler_HTTPError(t *testing.T) {
	rec, oo := runErrorHandler(t, echo.NewHTTPError(http.StatusForbidden, "insufficient permissions"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if oo.Issue[0].Code != IssueTypeForbidden {
		t.Errorf("expected forbidden issue, got %s", oo.Issue[0].Code)
	}
	if oo.Issue[0].Diagnostics != "insufficient permissions" {
		t.Errorf("unexpected diagnostics %q", oo.Issue[0].Diagnostics)
	}
}

func TestHTTPErrorHandler_PlainErrorHidesDetail(t *testing.T) {
	rec, oo := runErrorHandler(t, errors.New("pq: relation does not exist"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if oo.Issue[0].Code != IssueTypeException {
		t.Errorf("expected exception issue, got %s", oo.Issue[0].Code)
	}
	if oo.Issue[0].Diagnostics != "internal server error" {
		t.Errorf("expected generic diagnostics, got %q", oo.Issue[0].Diagnostics)
	}
}

func TestIssueTypeForStatus(t *testing.T) {
	tests := map[int]string{
		http.StatusBadRequest:      IssueTypeInvalid,
		http.StatusUnauthorized:    IssueTypeLogin,
		http.StatusNotFound:        IssueTypeNotFound,
		http.StatusTooManyRequests: IssueTypeThrottled,
		http.StatusTeapot:          IssueTypeException,
	}
	for status, want := range tests {
		if got := issueTypeForStatus(status); got != want {
			t.Errorf("status %d: expected %s, got %s", status, want, got)
		}
	}
}
