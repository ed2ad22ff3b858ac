package models

import (
	"bytes"
	"encoding/json"
)

// Field sets requested from the place details endpoint. The order is part of
// the upstream request and must not change.
const (
	ReviewFields = "rating,reviews,user_ratings_total,name,formatted_address,formatted_phone_number,opening_hours"
	PlaceFields  = "name,formatted_address,formatted_phone_number,opening_hours,website,rating,user_ratings_total"
)

// StatusOK is the only upstream status treated as success.
const StatusOK = "OK"

// PlaceQuery is one place details lookup.
type PlaceQuery struct {
	PlaceID string
	Fields  string
}

// DetailsStatus is the part of a place details response the gateway reads.
// The rest of the body is passed through untouched. Status is kept raw since
// upstream errors may carry a missing or non-string value.
type DetailsStatus struct {
	Status       json.RawMessage `json:"status"`
	ErrorMessage json.RawMessage `json:"error_message,omitempty"`
}

// OK reports whether status is exactly the string "OK".
func (d DetailsStatus) OK() bool {
	var s string
	return json.Unmarshal(d.Status, &s) == nil && s == StatusOK
}

// StatusText renders status for the error envelope: strings as-is, a missing
// or null value as "None", booleans as "True"/"False" and anything else as
// its JSON text.
func (d DetailsStatus) StatusText() string {
	return scalarText(d.Status)
}

// Message returns error_message when it is a string.
func (d DetailsStatus) Message() string {
	var s string
	if json.Unmarshal(d.ErrorMessage, &s) != nil {
		return ""
	}
	return s
}

func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null":
		return "None"
	case "true":
		return "True"
	case "false":
		return "False"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
