package exception

import "errors"

// General errors
var (
	ErrNilInstance     = errors.New("nil instance")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInternal        = errors.New("internal error")
)

// Validation errors: malformed admission or sizing input, rejected
// before any side effect.
var (
	ErrValidation        = errors.New("validation: invalid input")
	ErrValidationSymbol  = errors.New("validation: empty symbol")
	ErrValidationPrice   = errors.New("validation: price must be > 0")
	ErrValidationQty     = errors.New("validation: quantity must be > 0")
	ErrValidationAction  = errors.New("validation: action is not directional")
	ErrValidationPatch   = errors.New("validation: invalid config patch")
	ErrValidationUnknown = errors.New("validation: unknown source")
)

// API errors: a collaborator was unreachable or rejected the call.
var (
	ErrAPIUnavailable = errors.New("api: collaborator unavailable")
	ErrAPIRejected    = errors.New("api: collaborator rejected call")
)
