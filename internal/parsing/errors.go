package parsing

import "fmt"

// RowError reports a malformed line item in a model response. One
// malformed entry invalidates the whole response; the pipeline never
// writes a partial receipt.
type RowError struct {
	Item  string
	Field string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line item %q is missing required field %q", e.Item, e.Field)
}

// ResponseError reports a model response that is not the expected
// JSON shape at all.
type ResponseError struct {
	Message string
	Cause   error
}

func (e *ResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed model response: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed model response: %s", e.Message)
}

func (e *ResponseError) Unwrap() error {
	return e.Cause
}
