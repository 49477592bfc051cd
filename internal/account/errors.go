package account

import "errors"

// Kind classifies every failure the account core reports.
type Kind int

const (
	KindUnknown Kind = iota
	KindDuplicateAccount
	KindInvalidCredentials
	KindInactiveAccount
	KindNotFound
	KindConfiguration
	KindTokenExpired
	KindTokenInvalid
	KindStoreUnavailable
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateAccount:
		return "duplicate account"
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindInactiveAccount:
		return "inactive account"
	case KindNotFound:
		return "account not found"
	case KindConfiguration:
		return "configuration error"
	case KindTokenExpired:
		return "token expired"
	case KindTokenInvalid:
		return "token invalid"
	case KindStoreUnavailable:
		return "store unavailable"
	case KindInvalidInput:
		return "invalid input"
	default:
		return "unknown error"
	}
}

// Error is returned by every AccountService operation. Msg is optional detail
// and never contains store error text or secrets.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Op != "" {
		s = "account." + e.Op + ": " + s
	}
	return s
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of Op and Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrDuplicateAccount   = &Error{Kind: KindDuplicateAccount}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrInactiveAccount    = &Error{Kind: KindInactiveAccount}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConfiguration      = &Error{Kind: KindConfiguration}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired}
	ErrTokenInvalid       = &Error{Kind: KindTokenInvalid}
	ErrStoreUnavailable   = &Error{Kind: KindStoreUnavailable}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
)

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string) error {
	return &Error{Kind: kind, Op: op}
}

func newErrorMsg(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}
