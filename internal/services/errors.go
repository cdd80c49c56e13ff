package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failures services report to their callers.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindUnauthorized
	KindInsufficientWords
	KindNotUnlocked
	KindGenerationFailed
	KindNoGenericArticles
	KindWordNotFoundInArticle
	KindInvalidArgument
	KindConflict
	KindUnauthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInsufficientWords:
		return "insufficient_words"
	case KindNotUnlocked:
		return "not_unlocked"
	case KindGenerationFailed:
		return "generation_failed"
	case KindNoGenericArticles:
		return "no_generic_articles"
	case KindWordNotFoundInArticle:
		return "word_not_found_in_article"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func validationError(fields map[string]string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: "Validation failed", Fields: fields}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
