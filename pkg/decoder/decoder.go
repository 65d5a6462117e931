package decoder

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/samvad-hq/samvad-orbit-reporter/internal/domain"
)

// Package decoder turns Open Notify payloads into domain values. Fields are read one by
// one from a raw object so that errors name the exact wire field; unknown fields are ignored.

type object map[string]json.RawMessage

// DecodeAstronautRoster decodes an astros.json body.
func DecodeAstronautRoster(data []byte) (domain.AstronautRoster, error) {
	root, err := parseObject(data, "$")
	if err != nil {
		return domain.AstronautRoster{}, err
	}

	msg, err := root.str("message", "message")
	if err != nil {
		return domain.AstronautRoster{}, err
	}
	number, err := root.integer("number", "number")
	if err != nil {
		return domain.AstronautRoster{}, err
	}
	people, err := root.people()
	if err != nil {
		return domain.AstronautRoster{}, err
	}

	return domain.AstronautRoster{
		Message: msg,
		Number:  int(number),
		People:  people,
	}, nil
}

// DecodeIssReport decodes an iss-now.json body.
func DecodeIssReport(data []byte) (domain.IssReport, error) {
	root, err := parseObject(data, "$")
	if err != nil {
		return domain.IssReport{}, err
	}

	msg, err := root.str("message", "message")
	if err != nil {
		return domain.IssReport{}, err
	}
	rawPos, err := root.field("iss_position", "iss_position")
	if err != nil {
		return domain.IssReport{}, err
	}
	pos, err := parseObject(rawPos, "iss_position")
	if err != nil {
		return domain.IssReport{}, err
	}
	lat, err := pos.float("latitude", "iss_position.latitude")
	if err != nil {
		return domain.IssReport{}, err
	}
	lon, err := pos.float("longitude", "iss_position.longitude")
	if err != nil {
		return domain.IssReport{}, err
	}
	ts, err := root.integer("timestamp", "timestamp")
	if err != nil {
		return domain.IssReport{}, err
	}

	return domain.IssReport{
		Message:   msg,
		Position:  domain.IssPosition{Latitude: lat, Longitude: lon},
		Timestamp: ts,
	}, nil
}

func (o object) people() ([]domain.AstronautAssignment, error) {
	raw, err := o.field("people", "people")
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed("people", "expected array")
	}

	people := make([]domain.AstronautAssignment, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("people[%d]", i)
		entry, err := parseObject(item, path)
		if err != nil {
			return nil, err
		}
		name, err := entry.str("name", path+".name")
		if err != nil {
			return nil, err
		}
		craft, err := entry.str("craft", path+".craft")
		if err != nil {
			return nil, err
		}
		people = append(people, domain.AstronautAssignment{Name: name, Craft: craft})
	}
	return people, nil
}

func parseObject(data []byte, path string) (object, error) {
	if isNull(data) {
		return nil, malformed(path, "expected object, got null")
	}
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, malformed(path, "expected object: %v", err)
	}
	return obj, nil
}

// field returns the raw value for key; absent and null values are both missing.
func (o object) field(key, path string) (json.RawMessage, error) {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil, malformed(path, "missing required field")
	}
	return raw, nil
}

func (o object) str(key, path string) (string, error) {
	raw, err := o.field(key, path)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed(path, "expected string")
	}
	return s, nil
}

// number accepts a JSON number or a string holding one; the API quotes coordinates.
func (o object) number(key, path string) (json.Number, error) {
	raw, err := o.field(key, path)
	if err != nil {
		return "", err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return "", malformed(path, "expected number")
	}
	return n, nil
}

func (o object) integer(key, path string) (int64, error) {
	n, err := o.number(key, path)
	if err != nil {
		return 0, err
	}
	v, err := n.Int64()
	if err != nil {
		return 0, malformed(path, "expected integer, got %s", n)
	}
	return v, nil
}

func (o object) float(key, path string) (float64, error) {
	n, err := o.number(key, path)
	if err != nil {
		return 0, err
	}
	v, err := n.Float64()
	if err != nil {
		return 0, malformed(path, "expected number, got %s", n)
	}
	return v, nil
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
