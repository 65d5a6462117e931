package domain

import "time"

// Domain contains the decoded Open Notify payloads.

// AstronautAssignment is one crew member and the craft they are aboard.
type AstronautAssignment struct {
	Name  string `json:"name"`
	Craft string `json:"craft"`
}

// AstronautRoster is the decoded astros.json payload. Number is reported as received;
// it is not checked against len(People).
type AstronautRoster struct {
	Message string                `json:"message"`
	Number  int                   `json:"number"`
	People  []AstronautAssignment `json:"people"`
}

type IssPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IssReport is the decoded iss-now.json payload.
type IssReport struct {
	Message   string      `json:"message"`
	Position  IssPosition `json:"iss_position"`
	Timestamp int64       `json:"timestamp"`
}

// ObservedAt converts the report timestamp into the given zone.
func (r IssReport) ObservedAt(zone *time.Location) time.Time {
	return ToLocalDateTime(r.Timestamp, zone)
}

// ToLocalDateTime converts unix seconds into a date-time in zone; a nil zone means time.Local.
func ToLocalDateTime(timestamp int64, zone *time.Location) time.Time {
	if zone == nil {
		zone = time.Local
	}
	return time.Unix(timestamp, 0).In(zone)
}
