package usecase

import "time"

// timestampIssuer hands out client send times in milliseconds. Every value is
// strictly greater than the one before it, so two sends from this client never
// share an ordering key.
type timestampIssuer struct {
	now  func() time.Time
	last int64
}

func newTimestampIssuer(now func() time.Time) *timestampIssuer {
	return &timestampIssuer{now: now}
}

func (t *timestampIssuer) Next() int64 {
	ts := t.now().UnixMilli()
	if ts <= t.last {
		ts = t.last + 1
	}
	t.last = ts
	return ts
}
