// -------------------------------------------------------------------------------
// Faults - Domain Error Taxonomy
//
// Project: KCloud / Author: Alex Freidah
//
// Closed set of domain error kinds shared by every layer. Adapters classify raw
// backend failures into exactly one kind before they cross a package boundary,
// so the orchestrator and HTTP layer dispatch on Kind instead of inspecting
// driver-specific error types. Each kind carries a stable wire code and an HTTP
// status used by the response writer.
// -------------------------------------------------------------------------------

package faults

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// -------------------------------------------------------------------------
// KINDS
// -------------------------------------------------------------------------

// Kind identifies one class of domain failure.
type Kind int

const (
	// Unknown is the catch-all for unclassified failures. Internal detail is
	// logged server-side and never included in the client message.
	Unknown Kind = iota

	// NotReadable means a storage backend returned a payload that cannot be
	// streamed to the client.
	NotReadable

	// ServiceUnavailable means the object storage service is unreachable
	// (DNS failure, connection refused) or reported itself down.
	ServiceUnavailable

	// FileNotFound means a referenced object key does not exist in the
	// object store.
	FileNotFound

	// ResourceNotFound means a record store lookup matched no document.
	ResourceNotFound

	// FileReferenceNotFound means a record exists but the requested file
	// reference (e.g. an optional cover) was never set, or a secondary blob
	// vanished during best-effort cleanup.
	FileReferenceNotFound

	// UnknownFileReference means an unclassified error occurred while
	// operating on a file referenced by a record.
	UnknownFileReference

	// Timeout means a time-bounded storage operation exceeded its budget.
	Timeout

	// DBConnection means the record store backend is unreachable or failing.
	DBConnection

	// UnsupportedFileType means an uploaded file failed mimetype/extension
	// validation.
	UnsupportedFileType

	// ValidationData means request input violated the expected schema.
	ValidationData

	// DuplicateFields means a multipart field appeared more times than its
	// allowed count.
	DuplicateFields

	// FileSizeLimit means an upload exceeded the configured maximum size.
	FileSizeLimit

	// MissingParameter means a required request parameter was absent.
	MissingParameter

	// AccessDenied means the request failed authentication.
	AccessDenied
)

// codes maps each kind to its stable machine-readable wire code.
var codes = map[Kind]string{
	Unknown:               "UNKNOWNERROR",
	NotReadable:           "NOTREADABLEERROR",
	ServiceUnavailable:    "SERVICEUNAVAILABLEERROR",
	FileNotFound:          "FILENOTFOUNDERROR",
	ResourceNotFound:      "RESOURCENOTFOUNDERROR",
	FileReferenceNotFound: "FILEREFERENCENOTFOUNDERROR",
	UnknownFileReference:  "UNKNOWNERRORINFILEREFERENCE",
	Timeout:               "TIMEOUTERROR",
	DBConnection:          "DBCONNECTIONERROR",
	UnsupportedFileType:   "UNSUPPORTEDFILETYPEERROR",
	ValidationData:        "VALIDATIONDATAERROR",
	DuplicateFields:       "DUPLICATEFIELDSERROR",
	FileSizeLimit:         "FILESIZELIMITERROR",
	MissingParameter:      "MISSINGPARAMETERERROR",
	AccessDenied:          "ACCESSDENIEDERROR",
}

// CodeNone is the errorCode carried by success envelopes.
const CodeNone = "NONE"

// Code returns the wire code for the kind.
func (k Kind) Code() string {
	if c, ok := codes[k]; ok {
		return c
	}
	return codes[Unknown]
}

// HTTPStatus returns the response status for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case FileNotFound, ResourceNotFound, FileReferenceNotFound:
		return http.StatusNotFound
	case Timeout:
		return http.StatusRequestTimeout
	case UnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case ValidationData, DuplicateFields, FileSizeLimit, MissingParameter:
		return http.StatusBadRequest
	case AccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// -------------------------------------------------------------------------
// FAULT VALUE
// -------------------------------------------------------------------------

// Fault is a classified domain error. Message is safe to show to clients;
// Resource names the entity or field the error concerns and Action the
// operation that was in progress when it occurred.
type Fault struct {
	Kind     Kind
	Message  string
	Messages []string // populated for ValidationData when several inputs failed
	Resource string
	Action   string
	cause    error
}

// New creates a fault of the given kind.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// Newf creates a fault with a formatted message.
func Newf(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a fault that records the underlying cause for logs while
// exposing only message to clients.
func Wrap(kind Kind, cause error, message string) *Fault {
	return &Fault{Kind: kind, Message: message, cause: cause}
}

// Validation creates a ValidationData fault carrying every collected message,
// not just the first one encountered.
func Validation(messages ...string) *Fault {
	return &Fault{
		Kind:     ValidationData,
		Message:  strings.Join(messages, "; "),
		Messages: messages,
	}
}

// In returns a copy annotated with the resource the fault concerns.
func (f *Fault) In(resource string) *Fault {
	c := *f
	c.Resource = resource
	return &c
}

// During returns a copy annotated with the operation that was in progress.
func (f *Fault) During(action string) *Fault {
	c := *f
	c.Action = action
	return &c
}

// Error implements the error interface.
func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.Code())
	if f.Action != "" {
		b.WriteString(" [")
		b.WriteString(f.Action)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(f.Message)
	if f.cause != nil {
		b.WriteString(": ")
		b.WriteString(f.cause.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (f *Fault) Unwrap() error {
	return f.cause
}

// Is lets errors.Is match faults by kind: errors.Is(err, &Fault{Kind: k})
// reports true for any fault of kind k.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	return f.Kind == t.Kind
}

// -------------------------------------------------------------------------
// CLASSIFICATION HELPERS
// -------------------------------------------------------------------------

// From returns err as a *Fault, coercing unclassified errors to Unknown. The
// generic message shields internal detail from clients; the original error is
// retained as the cause for server-side logging.
func From(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return Wrap(Unknown, err, "an unknown error occurred")
}

// IsKind reports whether err is (or wraps) a fault of the given kind.
func IsKind(err error, kind Kind) bool {
	var f *Fault
	if !errors.As(err, &f) {
		return false
	}
	return f.Kind == kind
}

// KindOf returns the kind of err, or Unknown for unclassified errors.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Unknown
}
