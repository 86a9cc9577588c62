package claim

import "errors"

var (
	ErrUnknownField          = errors.New("unknown claim field")
	ErrUnknownStatus         = errors.New("unknown claim status")
	ErrUnknownSeverity       = errors.New("unknown claim severity")
	ErrImmutableField        = errors.New("claim field is immutable")
	ErrInvalidDraft          = errors.New("invalid claim draft")
	ErrInvalidCompletedPR    = errors.New("invalid completed pr reference")
	ErrTransitionNotAllowed  = errors.New("status transition not allowed")
	ErrUnknownAttachmentKind = errors.New("unknown attachment kind")
)
