package gateway

import (
	"errors"
	"fmt"
	"strings"

	"longevitygenie/opengenes/internal/db"
	querysql "longevitygenie/opengenes/internal/db/sql"
	"longevitygenie/opengenes/internal/schema"
)

const (
	CodeValidation  = "validation_error"
	CodeExecution   = "execution_error"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal_error"
)

// Error is the payload returned to clients for every failed call.
type Error struct {
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Reason, e.Message)
}

// translate maps an internal error onto the client error contract.
func translate(err error) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	var valErr *db.ValidationError
	if errors.As(err, &valErr) {
		return &Error{
			Code:    CodeValidation,
			Reason:  valErr.Reason,
			Message: validationMessage(valErr.Reason),
		}
	}

	var execErr *db.ExecutionError
	if errors.As(err, &execErr) {
		return &Error{
			Code:    CodeExecution,
			Reason:  execErr.Reason,
			Message: execErr.Message,
		}
	}

	if errors.Is(err, schema.ErrUnavailable) || errors.Is(err, db.ErrStoreMissing) {
		return &Error{Code: CodeUnavailable, Reason: "unavailable", Message: err.Error()}
	}

	return &Error{Code: CodeInternal, Reason: "internal", Message: err.Error()}
}

func validationMessage(reason string) string {
	code, keyword, _ := strings.Cut(reason, ":")

	switch querysql.Reason(code) {
	case querysql.ReasonNotSelect:
		return "Only SELECT statements, optionally introduced by WITH, are allowed."
	case querysql.ReasonForbiddenKeyword:
		return fmt.Sprintf("The statement contains the forbidden keyword %s.", keyword)
	case querysql.ReasonMultipleStatements:
		return "Only a single statement may be submitted per call."
	default:
		return "The statement was rejected."
	}
}
