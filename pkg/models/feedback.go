package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// FeedbackRow is a feedback record as stored by the upstream chat application.
type FeedbackRow struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Data      json.RawMessage `json:"data" db:"data"`
	CreatedAt Timestamp       `json:"created_at" db:"created_at"`
}

// FeedbackPayload is the decoded form of the feedback data column.
type FeedbackPayload struct {
	// Rating is zero when the stored rating is missing or not a JSON number.
	Rating     float64
	ModelID    string
	HasModelID bool
	Comment    *string
}

// DecodeFeedbackPayload decodes a raw feedback document; malformed documents
// decode as an unrated feedback without a workspace reference.
func DecodeFeedbackPayload(raw []byte) FeedbackPayload {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return FeedbackPayload{}
	}

	var p FeedbackPayload
	if r := bytes.TrimSpace(doc["rating"]); len(r) > 0 && (r[0] == '-' || (r[0] >= '0' && r[0] <= '9')) {
		if v, err := strconv.ParseFloat(string(r), 64); err == nil {
			p.Rating = v
		}
	}
	p.ModelID, p.HasModelID = JSONText(doc["model_id"])
	if c, ok := JSONText(doc["comment"]); ok {
		p.Comment = &c
	}
	return p
}

// Positive reports a favorable rating.
func (p FeedbackPayload) Positive() bool { return p.Rating > 0 }

// Negative reports an unfavorable rating.
func (p FeedbackPayload) Negative() bool { return p.Rating < 0 }

// RoundedRating is the rating rounded half away from zero.
func (p FeedbackPayload) RoundedRating() int64 {
	return int64(math.Round(p.Rating))
}

// FeedbackItem is one of the most recent feedback rows.
type FeedbackItem struct {
	ID        string    `json:"id" db:"id"`
	ModelID   string    `json:"model_id" db:"model_id"`
	Rating    int64     `json:"rating" db:"rating"`
	Comment   *string   `json:"comment" db:"comment"`
	CreatedAt Timestamp `json:"created_at" db:"created_at"`
}

// FeedbackSummary totals feedback polarity and lists the newest rows.
type FeedbackSummary struct {
	Positive int64          `json:"positive" db:"positive"`
	Negative int64          `json:"negative" db:"negative"`
	Recent   []FeedbackItem `json:"recent"`
}
