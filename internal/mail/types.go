package mail

import "time"

// Candidate references a message that matched the sender query but has
// not been fetched in full yet.
type Candidate struct {
	ID         string
	InternalMs int64
}

// Payload is an extracted receipt attachment ready for the model.
//
// InternalMs is the message's Gmail internalDate and is authoritative
// for watermark bookkeeping. Date is the calendar date written into
// rows when the model cannot infer one; it degrades to a header-parsed
// date only when the internal timestamp is unavailable.
type Payload struct {
	Data       []byte
	Date       time.Time
	InternalMs int64
}
