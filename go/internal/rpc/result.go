package rpc

import (
	"errors"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
)

// ActionResult is returned by every mutating call.
type ActionResult struct {
	Success            bool                       `json:"success"`
	Message            string                     `json:"message"`
	Code               apperr.Code                `json:"code,omitempty"`
	IncompleteProjects []apperr.IncompleteProject `json:"incompleteProjects,omitempty"`
	Step               string                     `json:"step,omitempty"`
}

// Succeeded returns a successful result.
func Succeeded(message string) ActionResult {
	return ActionResult{Success: true, Message: message}
}

// Failed converts err into a failed result. Business errors are shown
// verbatim; anything else is logged and replaced by fallback.
func Failed(procedure string, err error, fallback string) ActionResult {
	if e, ok := apperr.As(err); ok {
		if e.Err != nil {
			log.Error().Err(e.Err).Str("procedure", procedure).Str("code", string(e.Code)).Msg("business error with cause")
		}
		return ActionResult{
			Message:            e.Message,
			Code:               e.Code,
			IncompleteProjects: e.IncompleteProjects,
			Step:               e.Step,
		}
	}
	log.Error().Err(err).Str("procedure", procedure).Msg("unexpected error")
	return ActionResult{Message: fallback}
}

// ConnectError maps err to a connect error for read calls.
func ConnectError(procedure string, err error) *connect.Error {
	e, ok := apperr.As(err)
	if !ok {
		log.Error().Err(err).Str("procedure", procedure).Msg("unexpected error")
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
	return connect.NewError(codeFor(e.Code), errors.New(e.Message))
}

func codeFor(code apperr.Code) connect.Code {
	switch code {
	case apperr.CodeUnauthenticated:
		return connect.CodeUnauthenticated
	case apperr.CodeWrongRole:
		return connect.CodePermissionDenied
	case apperr.CodeNotFound:
		return connect.CodeNotFound
	case apperr.CodeInvalidArgument:
		return connect.CodeInvalidArgument
	case apperr.CodeImportFailed:
		return connect.CodeUnavailable
	default:
		return connect.CodeFailedPrecondition
	}
}
