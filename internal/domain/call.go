package domain

// Call is one alert naming an instrument at a moment in time. The alert
// timestamp is the earliest moment a position could have been opened in
// response to it.
type Call struct {
	CallID           string `json:"call_id"`
	InstrumentID     string `json:"instrument_id"`
	AlertTimestampMs int64  `json:"alert_timestamp_ms"`
	Source           string `json:"source"` // originating channel or feed
	CreatedAtMs      int64  `json:"created_at_ms"`
}
