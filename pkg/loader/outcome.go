package loader

import (
	"encoding/json"
	"net/http"
)

// Kind identifies a module's fetch outcome.
type Kind int

const (
	// KindNoFetch means the module has no fetch hook, or its hook returned
	// nothing response-shaped.
	KindNoFetch Kind = iota

	// KindData means the fetch produced structured data.
	KindData

	// KindRedirect means the fetch produced a redirect; the pipeline
	// short-circuits before rendering.
	KindRedirect

	// KindError means the fetch produced a data error; rendering proceeds
	// and the render callback decides visibility.
	KindError
)

// FetchError is a per-module data error.
type FetchError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Outcome is the closed result of a module's data fetch. Exactly one of the
// four kinds holds; redirect and error can never both be set. The zero value
// is KindNoFetch.
type Outcome struct {
	kind     Kind
	data     json.RawMessage
	fetchErr FetchError
	header   http.Header
	status   int
}

// NoFetch returns the empty outcome.
func NoFetch() Outcome { return Outcome{} }

// DataOutcome wraps structured data. The raw JSON is kept verbatim so the
// hydration payload reproduces it byte for byte.
func DataOutcome(data json.RawMessage) Outcome {
	return Outcome{kind: KindData, data: data}
}

// RedirectOutcome wraps a redirect's headers and status.
func RedirectOutcome(header http.Header, status int) Outcome {
	return Outcome{kind: KindRedirect, header: header, status: status}
}

// ErrorOutcome wraps a data error.
func ErrorOutcome(message string, status int) Outcome {
	return Outcome{kind: KindError, fetchErr: FetchError{Message: message, Status: status}}
}

// Kind returns the outcome's variant.
func (o Outcome) Kind() Kind { return o.kind }

// Data returns the structured data for a KindData outcome.
func (o Outcome) Data() (json.RawMessage, bool) {
	return o.data, o.kind == KindData
}

// Redirect returns the headers and status for a KindRedirect outcome.
func (o Outcome) Redirect() (http.Header, int, bool) {
	return o.header, o.status, o.kind == KindRedirect
}

// Err returns the data error for a KindError outcome.
func (o Outcome) Err() (FetchError, bool) {
	return o.fetchErr, o.kind == KindError
}
