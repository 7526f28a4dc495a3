package credential

import "errors"

var (
	ErrDuplicateEmail  = errors.New("email already exists")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// FailureKind says which half of a sign-in was wrong. It is for logs and tests only; callers
// must render every AuthError with the same message.
type FailureKind int

const (
	NotFound FailureKind = iota + 1
	BadPassword
)

// InvalidCredentialsMessage is the only text a client ever sees for a failed sign-in.
const InvalidCredentialsMessage = "Invalid email or password"

// AuthError is returned by Authenticate when the email is unknown or the password is wrong.
type AuthError struct {
	Kind FailureKind
}

func (e *AuthError) Error() string { return InvalidCredentialsMessage }

func (k FailureKind) String() string {
	switch k {
	case NotFound:
		return "unknown email"
	case BadPassword:
		return "wrong password"
	default:
		return "unknown"
	}
}
