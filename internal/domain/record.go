package domain

import "context"

// ParsedRecord is a successfully parsed expense-record command.
// Amount is a non-negative integer in yen; Category may be empty under the
// simple grammar; Description is never empty (the parser substitutes a
// placeholder when omitted).
type ParsedRecord struct {
	Amount      int
	Category    string
	Description string
}

// SinkStatus classifies the outcome of a record attempt.
type SinkStatus int

const (
	// SinkSkipped means no endpoint is configured; no I/O was attempted.
	SinkSkipped SinkStatus = iota
	// SinkStored means the endpoint acknowledged the record.
	SinkStored
	// SinkFailed means the attempt was made and did not succeed.
	SinkFailed
)

func (s SinkStatus) String() string {
	switch s {
	case SinkSkipped:
		return "skipped"
	case SinkStored:
		return "stored"
	case SinkFailed:
		return "failed"
	}
	return "unknown"
}

// SinkResult reports a record attempt. Err carries the cause for SinkFailed
// and is diagnostic only; callers branch on Status.
type SinkResult struct {
	Status SinkStatus
	Err    error
}

// OK reports whether the outcome should read as success to the user.
// Skipped counts as success: record-keeping is best-effort and an
// unconfigured sink must not fail the flow.
func (r SinkResult) OK() bool {
	return r.Status != SinkFailed
}

// RecordSink forwards a parsed record to the external record-keeping
// endpoint. Implementations never panic and never return through any path
// other than the result value.
type RecordSink interface {
	Record(ctx context.Context, rec ParsedRecord) SinkResult
}

// ReplyTransport sends the final reply for one event. Each reply token is
// used exactly once.
type ReplyTransport interface {
	Reply(ctx context.Context, reply OutboundReply) error
}
