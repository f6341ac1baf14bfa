// Package pkierr classifies failures of the credential operations.
//
// Every error returned by the keypair, csr, identity and credential packages
// carries exactly one of the marks below, so callers can branch with
// errors.Is regardless of how many messages were added on the way up:
//
//	if errors.Is(err, pkierr.ErrCrypto) {
//		// re-prompt for the passphrase
//	}
//
// Messages never contain passphrases or key material.
package pkierr

import (
	"github.com/cockroachdb/errors"
)

// Kind of the failure
type Kind int

// Kinds
const (
	KindUnknown Kind = iota
	// KindFormat is a malformed PEM/DER envelope or unparsable structure
	KindFormat
	// KindCrypto is a decryption, signing or algorithm failure
	KindCrypto
	// KindValidation is missing or invalid input
	KindValidation
	// KindUnsupportedKeyType is a key type that can not be used for the operation
	KindUnsupportedKeyType
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindFormat:             "format",
	KindCrypto:             "crypto",
	KindValidation:         "validation",
	KindUnsupportedKeyType: "unsupported_key_type",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Marks
var (
	ErrFormat             = errors.New("format error")
	ErrCrypto             = errors.New("crypto error")
	ErrValidation         = errors.New("validation error")
	ErrUnsupportedKeyType = errors.New("unsupported key type")
)

var marks = []struct {
	kind Kind
	mark error
}{
	{KindFormat, ErrFormat},
	{KindCrypto, ErrCrypto},
	{KindValidation, ErrValidation},
	{KindUnsupportedKeyType, ErrUnsupportedKeyType},
}

func markOf(kind Kind) error {
	for _, m := range marks {
		if m.kind == kind {
			return m.mark
		}
	}
	return ErrCrypto
}

// kindError attaches a mark to the cause,
// both the standard and cockroachdb errors.Is see it
type kindError struct {
	cause error
	mark  error
}

func (e *kindError) Error() string { return e.cause.Error() }

func (e *kindError) Unwrap() error { return e.cause }

func (e *kindError) Is(target error) bool { return target == e.mark }

func mark(err, m error) error {
	return &kindError{cause: err, mark: m}
}

// Formatf returns a new FormatError
func Formatf(format string, args ...any) error {
	return mark(errors.Newf(format, args...), ErrFormat)
}

// Cryptof returns a new CryptoError
func Cryptof(format string, args ...any) error {
	return mark(errors.Newf(format, args...), ErrCrypto)
}

// Validationf returns a new ValidationError
func Validationf(format string, args ...any) error {
	return mark(errors.Newf(format, args...), ErrValidation)
}

// Unsupportedf returns a new UnsupportedKeyTypeError
func Unsupportedf(format string, args ...any) error {
	return mark(errors.Newf(format, args...), ErrUnsupportedKeyType)
}

// WrapFormat marks err as FormatError with a message.
// The cause is kept for errors.Is/As, callers must not pass errors
// that may quote secret input.
func WrapFormat(err error, msg string) error {
	if err == nil {
		return nil
	}
	return mark(errors.WithMessage(err, msg), ErrFormat)
}

// WrapCrypto marks err as CryptoError with a message
func WrapCrypto(err error, msg string) error {
	if err == nil {
		return nil
	}
	return mark(errors.WithMessage(err, msg), ErrCrypto)
}

// KindOf returns the kind of the error, or KindUnknown
// if the error was not produced by this package
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, m := range marks {
		if errors.Is(err, m.mark) {
			return m.kind
		}
	}
	return KindUnknown
}

// Classify returns err unchanged when it already has a kind,
// otherwise marks it with the fallback kind
func Classify(err error, fallback Kind) error {
	if err == nil || KindOf(err) != KindUnknown {
		return err
	}
	return mark(err, markOf(fallback))
}
