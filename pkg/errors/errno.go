// Package errors provides the structured error type the engine returns
// across its package boundaries.
//
// Every failure the engine surfaces is one of a small set of kinds —
// validation, configuration, not-found, storage, upstream, or
// cancellation — each carrying a bilingual message and an optional
// wrapped cause, in the style of this repo's other internal packages.
//
// Usage:
//
//	return errors.ErrValidation.WithMessage("gate is required")
//	return errors.ErrStorage.WithCause(err)
package errors

import (
	"fmt"
	"sync"
)

// Kind identifies the broad category of a failure.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindConfig     Kind = "config_error"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage_error"
	KindUpstream   Kind = "upstream_error"
	KindCancelled  Kind = "cancelled"
)

// Errno is a structured error: a Kind plus bilingual messages and an
// optional wrapped cause.
type Errno struct {
	Kind Kind `json:"kind"`

	// MessageEN is the English error message.
	MessageEN string `json:"message"`

	// MessageZH is the Chinese error message.
	MessageZH string `json:"message_zh,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.MessageEN, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.MessageEN)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

func (e *Errno) clone() *Errno {
	return &Errno{Kind: e.Kind, MessageEN: e.MessageEN, MessageZH: e.MessageZH, cause: e.cause}
}

// WithCause returns a copy of e carrying cause as its wrapped error.
func (e *Errno) WithCause(cause error) *Errno {
	c := e.clone()
	c.cause = cause
	return c
}

// WithMessage returns a copy of e with a custom English message.
func (e *Errno) WithMessage(msg string) *Errno {
	c := e.clone()
	c.MessageEN = msg
	return c
}

// WithMessagef returns a copy of e with a formatted English message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	c := e.clone()
	c.MessageEN = fmt.Sprintf(format, args...)
	return c
}

// WithMessageZH returns a copy of e with a custom Chinese message.
func (e *Errno) WithMessageZH(msg string) *Errno {
	c := e.clone()
	c.MessageZH = msg
	return c
}

// WithMessages returns a copy of e with both messages replaced.
func (e *Errno) WithMessages(en, zh string) *Errno {
	c := e.clone()
	c.MessageEN = en
	c.MessageZH = zh
	return c
}

// Message returns the message for lang, falling back to English.
func (e *Errno) Message(lang string) string {
	if lang == "zh" || lang == "zh-CN" || lang == "zh_CN" {
		if e.MessageZH != "" {
			return e.MessageZH
		}
	}
	return e.MessageEN
}

// Is reports whether target is an *Errno with the same Kind.
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && e.Kind == t.Kind
}

// Format implements fmt.Formatter.
func (e *Errno) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "%s: %s", e.Kind, e.MessageEN)
			if e.MessageZH != "" {
				_, _ = fmt.Fprintf(s, " (%s)", e.MessageZH)
			}
			if e.cause != nil {
				_, _ = fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

var (
	registry   []*Errno
	registryMu sync.Mutex
)

// Register records e in the package registry, returning it unchanged.
// Unlike a per-service numeric code space, Kind is shared across many
// registered errors on purpose, so registration here is just bookkeeping
// for RegistrySize/GetAllRegistered, not a uniqueness constraint.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, e)
	return e
}

// New builds (without registering) a new Errno of the given kind.
func New(kind Kind, messageEN, messageZH string) *Errno {
	return &Errno{Kind: kind, MessageEN: messageEN, MessageZH: messageZH}
}

// FromError converts any error to an *Errno, wrapping unrecognized
// errors as ErrStorage — the engine's catch-all for a failure it cannot
// otherwise classify.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Errno); ok {
		return e
	}
	return ErrStorage.WithCause(err)
}

// IsKind reports whether err is an *Errno of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Errno)
	return ok && e.Kind == kind
}

// GetKind returns the Kind of err, or "" if err is not an *Errno.
func GetKind(err error) Kind {
	if e, ok := err.(*Errno); ok {
		return e.Kind
	}
	return ""
}

// RegistrySize returns the number of registered errors.
func RegistrySize() int {
	registryMu.Lock()
	defer registryMu.Unlock()
	return len(registry)
}

// GetAllRegistered returns a copy of every registered error.
func GetAllRegistered() []*Errno {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]*Errno, len(registry))
	copy(out, registry)
	return out
}
