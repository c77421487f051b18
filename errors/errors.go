// Package errors defines the error taxonomy used across the progress engine.
// Every failure is classified by kind and severity so callers can decide
// between logging, retrying and surfacing without string matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies where in the engine a failure originated.
type Kind string

const (
	// ModeCreation covers failures constructing a display mode.
	ModeCreation Kind = "mode-creation"
	// TaskOperation covers operations against the task registry, including
	// lookups of tasks that do not exist.
	TaskOperation Kind = "task-operation"
	// DisplayOperation covers invalid display or progress updates.
	DisplayOperation Kind = "display-operation"
	// External covers errors propagated from user callbacks.
	External Kind = "external"
	// IO covers failures writing to the output sink.
	IO Kind = "io"
)

// Severity drives the recovery policy applied to an error.
type Severity int

const (
	// Low errors are logged and otherwise ignored.
	Low Severity = iota
	// Medium errors are logged together with a recovery hint.
	Medium
	// High errors are retried when retryable, surfaced otherwise.
	High
	// Fatal errors always surface to the caller.
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Context records where an error was observed. It is attached as the error
// crosses component boundaries and never replaces the underlying cause.
type Context struct {
	Operation string
	Component string
	TaskID    uint64
	Details   map[string]string
}

func (c Context) String() string {
	parts := make([]string, 0, 4)
	if c.Component != "" {
		parts = append(parts, "component="+c.Component)
	}
	if c.Operation != "" {
		parts = append(parts, "operation="+c.Operation)
	}
	if c.TaskID != 0 {
		parts = append(parts, fmt.Sprintf("task=%d", c.TaskID))
	}
	for k, v := range c.Details {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

// Error is the concrete error type produced by the engine.
type Error struct {
	Kind      Kind
	Severity  Severity
	Message   string
	Retryable bool
	Context   *Context
	Cause     error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != nil {
		if ctx := e.Context.String(); ctx != "" {
			sb.WriteString(" (")
			sb.WriteString(ctx)
			sb.WriteString(")")
		}
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on kind so callers can use errors.Is with sentinel-style values.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind && (other.Message == "" || other.Message == e.Message)
}

// Option mutates an Error during construction.
type Option func(*Error)

// WithSeverity sets the severity used by the recovery policy.
func WithSeverity(s Severity) Option {
	return func(e *Error) { e.Severity = s }
}

// WithCause records the underlying error.
func WithCause(cause error) Option {
	return func(e *Error) { e.Cause = cause }
}

// WithTaskID attaches the task the error relates to.
func WithTaskID(id uint64) Option {
	return func(e *Error) {
		if e.Context == nil {
			e.Context = &Context{}
		}
		e.Context.TaskID = id
	}
}

// WithOperation names the operation that failed.
func WithOperation(op string) Option {
	return func(e *Error) {
		if e.Context == nil {
			e.Context = &Context{}
		}
		e.Context.Operation = op
	}
}

// WithComponent names the component the error was observed in.
func WithComponent(c string) Option {
	return func(e *Error) {
		if e.Context == nil {
			e.Context = &Context{}
		}
		e.Context.Component = c
	}
}

// WithDetail attaches a free-form key/value to the error context.
func WithDetail(key, value string) Option {
	return func(e *Error) {
		if e.Context == nil {
			e.Context = &Context{}
		}
		if e.Context.Details == nil {
			e.Context.Details = map[string]string{}
		}
		e.Context.Details[key] = value
	}
}

// Retryable marks the error as safe to retry.
func Retryable() Option {
	return func(e *Error) { e.Retryable = true }
}

// New builds an Error of the given kind. Severity defaults to Medium.
func New(kind Kind, message string, opts ...Option) *Error {
	e := &Error{Kind: kind, Severity: Medium, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf is New with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// TaskNotFound reports an operation against an id missing from the registry.
func TaskNotFound(id uint64, operation string) *Error {
	return New(TaskOperation,
		fmt.Sprintf("task %d not found", id),
		WithTaskID(id), WithOperation(operation), WithSeverity(Medium))
}

// Wrap classifies err under kind, preserving it as the cause. A nil err
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, kind Kind, message string, opts ...Option) error {
	if err == nil {
		return nil
	}
	e := New(kind, message, opts...)
	e.Cause = err
	return e
}

// WithContext attaches context to err without discarding it. Errors produced
// by this package are annotated in place on a copy; foreign errors are
// wrapped as External.
func WithContext(err error, ctx Context) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		clone := *pe
		if clone.Context == nil {
			clone.Context = &ctx
		} else {
			merged := *clone.Context
			if ctx.Operation != "" {
				merged.Operation = ctx.Operation
			}
			if ctx.Component != "" {
				merged.Component = ctx.Component
			}
			if ctx.TaskID != 0 {
				merged.TaskID = ctx.TaskID
			}
			for k, v := range ctx.Details {
				if merged.Details == nil {
					merged.Details = map[string]string{}
				}
				merged.Details[k] = v
			}
			clone.Context = &merged
		}
		return &clone
	}
	e := New(External, err.Error())
	e.Cause = err
	e.Context = &ctx
	return e
}

// SeverityOf reports the severity of err, defaulting to High for errors not
// produced by this package.
func SeverityOf(err error) Severity {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Severity
	}
	return High
}

// IsRetryable reports whether err is marked safe to retry.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// KindOf returns the kind of err, or "" for foreign errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
