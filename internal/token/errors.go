package token

import "errors"

// ErrorKind classifies why a token failed verification.
type ErrorKind int

const (
	Malformed ErrorKind = iota + 1
	BadSignature
	Expired
)

func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case BadSignature:
		return "bad signature"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a *VerificationError.
var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
)

// VerificationError is returned by Codec.Decode for any rejected token.
type VerificationError struct {
	Kind ErrorKind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return "token " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "token " + e.Kind.String()
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrExpired) and friends match on Kind.
func (e *VerificationError) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return e.Kind == Malformed
	case ErrBadSignature:
		return e.Kind == BadSignature
	case ErrExpired:
		return e.Kind == Expired
	}
	return false
}
