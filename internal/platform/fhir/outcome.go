package fhir

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// OperationOutcome severity levels per FHIR R4.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes per FHIR R4.
const (
	IssueTypeInvalid   = "invalid"
	IssueTypeRequired  = "required"
	IssueTypeValue     = "value"
	IssueTypeNotFound  = "not-found"
	IssueTypeSecurity  = "security"
	IssueTypeLogin     = "login"
	IssueTypeForbidden = "forbidden"
	IssueTypeThrottled = "throttled"
	IssueTypeTimeout   = "timeout"
	IssueTypeException = "exception"
	IssueTypeNotSupp   = "not-supported"
)

type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
}

func (o *OperationOutcome) GetResourceType() string { return "OperationOutcome" }
func (o *OperationOutcome) GetID() string           { return "" }

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{Severity: severity, Code: code, Diagnostics: diagnostics},
		},
	}
}

func NotFoundOutcome(resourceType, id string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeNotFound, resourceType+"/"+id+" not found")
}

func InvalidOutcome(diagnostics string, expression ...string) *OperationOutcome {
	oo := NewOperationOutcome(IssueSeverityError, IssueTypeInvalid, diagnostics)
	oo.Issue[0].Expression = expression
	return oo
}

func ExceptionOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeException, diagnostics)
}

// issueTypeForStatus picks the issue code for errors raised as echo.HTTPError
// by middleware that knows nothing about FHIR.
func issueTypeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return IssueTypeInvalid
	case http.StatusUnauthorized:
		return IssueTypeLogin
	case http.StatusForbidden:
		return IssueTypeForbidden
	case http.StatusNotFound:
		return IssueTypeNotFound
	case http.StatusMethodNotAllowed:
		return IssueTypeNotSupp
	case http.StatusTooManyRequests:
		return IssueTypeThrottled
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return IssueTypeTimeout
	default:
		return IssueTypeException
	}
}

// HTTPErrorHandler renders every error that escapes a handler as an
// OperationOutcome so FHIR clients never see echo's plain {"message"} body.
// Unexpected errors are logged and reported without internal detail.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		oo := NewOperationOutcome(IssueSeverityError, issueTypeForStatus(status), msg)
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, oo)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}
