package principal

import "errors"

var (
	ErrMissingSigningKey = errors.New("principal: signing key is required")
	ErrInvalidToken      = errors.New("principal: invalid token")
	ErrInvalidSubject    = errors.New("principal: token subject is not a valid id")
	ErrMalformedHeader   = errors.New("principal: malformed authorization header")
)
