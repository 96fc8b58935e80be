package helpdesk

import "errors"

var (
	ErrInvalidStatus   = errors.New("helpdesk: invalid status")
	ErrInvalidPriority = errors.New("helpdesk: invalid priority")
	ErrMissingField    = errors.New("helpdesk: required field is empty")
)
