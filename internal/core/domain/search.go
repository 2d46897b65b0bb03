package domain

import "encoding/json"

// Operation mirrors a long-running operation resource on the search service.
// A done operation may still carry a remote Error payload; deciding whether
// that is fatal belongs to the caller.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    json.RawMessage `json:"error,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Answer is the result of a grounded generation call.
type Answer struct {
	Text      string          `json:"answer"`
	Citations json.RawMessage `json:"citations,omitempty"`
}
