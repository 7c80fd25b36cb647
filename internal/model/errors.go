package model

import "fmt"

// FetchError indicates the blob store was unreachable or returned a
// non-success status for the requested URI.
type FetchError struct {
	URI    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URI, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URI, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates model output could not be interpreted: no JSON object
// was locatable, the JSON was invalid, or a required field was missing or of
// the wrong shape.
type ParseError struct {
	Stage string // "claims", "fact_score", "bias_score"
	Raw   string // The raw model output, for diagnostics
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SearchError indicates the search API failed or its response lacked the
// expected result-count field.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// BrokerError indicates the inference broker responded without the expected
// success/content shape.
type BrokerError struct {
	Err error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("broker: %v", e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }
