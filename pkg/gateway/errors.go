package gateway

import "errors"

var (
	ErrMissingToken     = errors.New("missing bearer credential")
	ErrIdentityRejected = errors.New("identity check rejected credential")
	ErrToolNotFound     = errors.New("tool not found")
	ErrToolDisabled     = errors.New("tool disabled by access policy")
)
