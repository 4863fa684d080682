// Package apperr holds the business error taxonomy shared by the judging and
// presentation domains. Business errors are expected outcomes that are shown
// to the caller verbatim; anything else is an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is wrapped by stores when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// Code classifies a business error.
type Code string

const (
	CodeUnauthenticated           Code = "unauthenticated"
	CodeWrongRole                 Code = "wrong_role"
	CodeJudgingNotActive          Code = "judging_not_active"
	CodeAnotherPresentationActive Code = "another_presentation_active"
	CodeIncompleteScores          Code = "incomplete_scores"
	CodeNotFound                  Code = "not_found"
	CodeNoEligibleMembers         Code = "no_eligible_members"
	CodeImportFailed              Code = "import_failed"
	CodeDistributionFailed        Code = "distribution_failed"
	CodeInvalidState              Code = "invalid_state"
	CodeInvalidArgument           Code = "invalid_argument"
)

// IncompleteProject lists the judges of a group that still owe a score.
type IncompleteProject struct {
	ProjectName   string   `json:"projectName"`
	MissingJudges []string `json:"missingJudges"`
}

// Error is a business rule violation.
type Error struct {
	Code               Code
	Message            string
	IncompleteProjects []IncompleteProject
	// Step names the distribution step that failed, when relevant.
	Step string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a business error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a business error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// As extracts a business error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the business code of err, or "" for internal errors.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// Is reports whether err is a business error with the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

func Unauthenticated() *Error {
	return New(CodeUnauthenticated, "You must be logged in to perform this action.")
}

func WrongRole(expected, actual string) *Error {
	return Newf(CodeWrongRole, "This action requires the %s role, but you are signed in as %s.", expected, roleOrNone(actual))
}

func JudgingNotActive() *Error {
	return New(CodeJudgingNotActive, "Please wait until judging begins.")
}

func AnotherPresentationActive(requested, active string) *Error {
	return Newf(CodeAnotherPresentationActive,
		"Cannot start presentation for %s. %s is currently presenting.", requested, active)
}

// IncompleteScores builds the gate failure from the projects still owed scores.
func IncompleteScores(projects []IncompleteProject) *Error {
	var b strings.Builder
	b.WriteString("Cannot start presentation.")
	for _, p := range projects {
		fmt.Fprintf(&b, " The following judges have not scored %q: %s.", p.ProjectName, strings.Join(p.MissingJudges, ", "))
	}
	return &Error{
		Code:               CodeIncompleteScores,
		Message:            b.String(),
		IncompleteProjects: projects,
	}
}

func NoEligibleMembers(message string) *Error {
	return New(CodeNoEligibleMembers, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func InvalidState(message string) *Error {
	return New(CodeInvalidState, message)
}

func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// StepFailed reports a distribution failure at the named step.
func StepFailed(code Code, step string, err error) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("Forming groups failed while %s. Please run it again.", step),
		Step:    step,
		Err:     err,
	}
}

func roleOrNone(role string) string {
	if role == "" {
		return "no role"
	}
	return role
}
