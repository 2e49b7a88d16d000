package jwt

import "errors"

// Kind classifies why a token failed verification.
type Kind int

const (
	// KindNone is returned by KindOf for nil or foreign errors.
	KindNone Kind = iota
	// KindMalformed means the token could not be parsed or its claims are incomplete.
	KindMalformed
	// KindBadSignature means the signature does not match the configured secret.
	KindBadSignature
	// KindExpired means the token is authentic but past its expiry.
	KindExpired
)

var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindBadSignature:
		return "bad_signature"
	case KindExpired:
		return "expired"
	default:
		return "none"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindMalformed:
		return ErrMalformed
	case KindBadSignature:
		return ErrBadSignature
	case KindExpired:
		return ErrExpired
	default:
		return nil
	}
}

// VerifyError is the only error type returned by Codec.Verify.
//
// errors.Is matches both the kind sentinel (ErrExpired, ErrBadSignature,
// ErrMalformed) and the underlying parser error.
type VerifyError struct {
	Kind Kind
	Err  error
}

func (e *VerifyError) Error() string {
	msg := "token invalid"
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *VerifyError) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf extracts the verification kind from err.
func KindOf(err error) Kind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindNone
}

func verifyErr(kind Kind, err error) error {
	return &VerifyError{Kind: kind, Err: err}
}
