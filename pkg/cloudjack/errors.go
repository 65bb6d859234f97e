package cloudjack

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a normalized provider error for handling and
// reporting. Every provider adapter maps its SDK's error codes onto this
// closed set so callers can branch without provider knowledge.
type ErrorKind string

const (
	// KindGeneric is a provider failure with no more specific classification.
	KindGeneric ErrorKind = "generic"
	// KindNotFound indicates the addressed resource does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindAlreadyExists indicates a create collided with an existing resource.
	KindAlreadyExists ErrorKind = "already_exists"
	// KindMessage indicates a queue message-level failure (send, receive,
	// acknowledge) as opposed to a queue resource failure.
	KindMessage ErrorKind = "message"
)

// Error is a structured, provider-normalized error with classification and
// context. Adapters build these from SDK failures; callers match them with
// errors.Is against the package sentinels or inspect the fields directly.
type Error struct {
	// Service is the capability the failing client was serving.
	Service Service

	// Kind classifies the failure.
	Kind ErrorKind

	// Message is a human-readable error message.
	Message string

	// Provider is the cloud provider where the error occurred.
	Provider CloudProvider

	// Op is the operation that failed.
	Op string

	// Resource is the identifier of the resource involved, if any.
	Resource string

	// Cause is the underlying SDK error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Service, e.Kind, e.Message)
	if e.Provider != "" {
		msg = fmt.Sprintf("[%s:%s:%s] %s", e.Provider, e.Service, e.Kind, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error field-by-field, treating zero values in the
// target as wildcards. errors.Is(err, &Error{Kind: KindNotFound}) matches a
// not-found from any service on any provider.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	if other.Service != "" && other.Service != e.Service {
		return false
	}
	if other.Kind != "" && other.Kind != e.Kind {
		return false
	}
	if other.Provider != "" && other.Provider != e.Provider {
		return false
	}
	return true
}

// NewError creates a classified Error for a service.
func NewError(service Service, kind ErrorKind, message string) *Error {
	return &Error{Service: service, Kind: kind, Message: message}
}

// WithProvider sets the provider.
func (e *Error) WithProvider(p CloudProvider) *Error {
	e.Provider = p
	return e
}

// WithOp sets the failing operation.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithResource sets the resource identifier.
func (e *Error) WithResource(id string) *Error {
	e.Resource = id
	return e
}

// WithCause sets the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// IsNotFound reports whether err is a normalized not-found failure from any
// provider or service.
func IsNotFound(err error) bool {
	var cjErr *Error
	return errors.As(err, &cjErr) && cjErr.Kind == KindNotFound
}

// IsAlreadyExists reports whether err is a normalized already-exists failure.
func IsAlreadyExists(err error) bool {
	var cjErr *Error
	return errors.As(err, &cjErr) && cjErr.Kind == KindAlreadyExists
}

// ErrorServiceOf extracts the service from a normalized error, or "" if err
// is not a *Error.
func ErrorServiceOf(err error) Service {
	var cjErr *Error
	if errors.As(err, &cjErr) {
		return cjErr.Service
	}
	return ""
}

// ConfigError indicates invalid or incomplete provider configuration. It is
// always produced during config resolution or client construction, never
// from a provider API call.
type ConfigError struct {
	// Provider is the provider whose configuration was rejected.
	Provider CloudProvider

	// Field is the configuration key at fault, if one can be named.
	Field string

	// Message explains what is wrong.
	Message string

	// Cause is the underlying error, such as a credential file read failure.
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid %s configuration", e.Provider)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Field)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// UnsupportedProviderError indicates a provider name outside the supported
// set, or one with no registered constructors.
type UnsupportedProviderError struct {
	Provider string
}

// Error implements the error interface.
func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported cloud provider: %s", e.Provider)
}

// UnsupportedServiceError indicates a provider that exists but does not
// implement the requested service.
type UnsupportedServiceError struct {
	Provider CloudProvider
	Service  Service
}

// Error implements the error interface.
func (e *UnsupportedServiceError) Error() string {
	return fmt.Sprintf("unsupported service '%s' for provider '%s'", e.Service, e.Provider)
}
