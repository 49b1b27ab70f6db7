package models

import (
	"encoding/json"
	"time"
)

// KST is the fixed UTC+9 civil calendar used for every date bucket,
// independent of the server locale.
var KST = time.FixedZone("KST", 9*60*60)

// DateLayout is the calendar date format used in query parameters and
// daily buckets.
const DateLayout = "2006-01-02"

// Timestamp is an epoch-second value rendered as an ISO-8601 string in KST.
type Timestamp int64

// Time converts the epoch value to a time in KST.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).In(KST)
}

// MarshalJSON renders the timestamp as RFC 3339 in KST.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time().Format(time.RFC3339))
}

// UnmarshalJSON accepts either epoch seconds or an RFC 3339 string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var epoch int64
	if err := json.Unmarshal(data, &epoch); err == nil {
		*t = Timestamp(epoch)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed.Unix())
	return nil
}
