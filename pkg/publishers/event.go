package publishers

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is one successful report handed to downstream sinks.
type Event struct {
	ID          string          `json:"id"`
	Endpoint    string          `json:"endpoint"`
	Text        string          `json:"text"`
	Payload     json.RawMessage `json:"payload"`
	Fingerprint string          `json:"fingerprint"`
	CollectedAt time.Time       `json:"collected_at"`
}

// NewEvent wraps a decoded payload. The fingerprint covers the payload only, so two
// polls returning the same data produce the same fingerprint.
func NewEvent(endpoint, text string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", endpoint, err)
	}
	sum := sha1.Sum(raw) //nolint:gosec
	return Event{
		ID:          uuid.NewString(),
		Endpoint:    endpoint,
		Text:        text,
		Payload:     raw,
		Fingerprint: hex.EncodeToString(sum[:]),
		CollectedAt: time.Now().UTC(),
	}, nil
}

// DedupKey identifies the event content per endpoint.
func (e Event) DedupKey() string {
	return e.Endpoint + ":" + e.Fingerprint
}
