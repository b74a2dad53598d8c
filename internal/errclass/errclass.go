// Package errclass tags errors as temporary (retry-eligible) or permanent.
// Classification is done by whoever produces the error; retry loops and the
// reconciliation job only read the tag.
package errclass

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	// KindUnclassified errors get the temporary treatment.
	KindUnclassified Kind = iota
	KindTemporary
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindTemporary:
		return "TEMPORARY"
	case KindPermanent:
		return "PERMANENT"
	default:
		return "UNCLASSIFIED"
	}
}

type ClassifiedError struct {
	Kind Kind
	Err  error
}

func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Cause lets errors.Cause from pkg/errors reach the original error.
func (e *ClassifiedError) Cause() error { return e.Err }

func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: KindTemporary, Err: err}
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: KindPermanent, Err: err}
}

// Temporaryf and Permanentf build a classified error from a message.
func Temporaryf(format string, args ...any) error {
	return Temporary(errors.Errorf(format, args...))
}

func Permanentf(format string, args ...any) error {
	return Permanent(errors.Errorf(format, args...))
}

// KindOf returns the outermost classification found in the chain.
func KindOf(err error) Kind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnclassified
}

func IsPermanent(err error) bool { return KindOf(err) == KindPermanent }

// IsTemporary is true for temporary and unclassified errors.
func IsTemporary(err error) bool { return err != nil && KindOf(err) != KindPermanent }
