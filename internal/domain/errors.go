package domain

import "errors"

var (
	ErrInvalidKey      = errors.New("invalid issue key")
	ErrInvalidSummary  = errors.New("invalid summary")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidLinkKind = errors.New("invalid link kind")
	ErrInvalidBody     = errors.New("invalid comment body")
	ErrInvalidAuthor   = errors.New("invalid comment author")
	ErrUnknownField    = errors.New("unknown field")
	ErrReadOnlyField   = errors.New("field is read-only")
)
