package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers that must react differently to
// business denials and collaborator failures.
type Kind string

const (
	KindPermissionDenied       Kind = "permission_denied"
	KindUnknownField           Kind = "unknown_field"
	KindUnknownStatus          Kind = "unknown_status"
	KindImmutableField         Kind = "immutable_field"
	KindInvalidInput           Kind = "invalid_input"
	KindNotFound               Kind = "not_found"
	KindFileTooLarge           Kind = "file_too_large"
	KindUploadFailed           Kind = "upload_failed"
	KindReportGenerationFailed Kind = "report_generation_failed"
	KindPersistenceFailed      Kind = "persistence_failed"
)

// Error is a classified error. Names lists the offending fields or files.
type Error struct {
	Kind  Kind
	Msg   string
	Names []string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Names) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Names, ", "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

func New(kind Kind, msg string, names ...string) error {
	return &Error{Kind: kind, Msg: msg, Names: append([]string(nil), names...)}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapKind classifies err. A nil err stays nil.
func WrapKind(err error, kind Kind, msg string, names ...string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Names: append([]string(nil), names...), Err: err}
}

// KindOf returns the outermost kind in the chain, or "" when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// NamesOf returns the offending names carried by the outermost classified error.
func NamesOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return append([]string(nil), e.Names...)
	}
	return nil
}
