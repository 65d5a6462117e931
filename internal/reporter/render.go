package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/samvad-hq/samvad-orbit-reporter/internal/domain"
)

// WriteText prints successful reports to out and one line per failed report to errOut.
func WriteText(out, errOut io.Writer, res Results) error {
	if res.Astronauts.Err == nil {
		if _, err := io.WriteString(out, res.Astronauts.Text); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintf(errOut, "error: %v\n", res.Astronauts.Err); err != nil {
		return err
	}

	if res.ISS.Err == nil {
		pos := res.ISS.Report.Position
		if _, err := fmt.Fprintf(out, "%s\n%s\n", res.ISS.Text, FormatPosition(pos)); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintf(errOut, "error: %v\n", res.ISS.Err); err != nil {
		return err
	}
	return nil
}

// FormatPosition renders the coordinates as received, without range checks.
func FormatPosition(pos domain.IssPosition) string {
	return fmt.Sprintf("ISS position: latitude=%s, longitude=%s",
		strconv.FormatFloat(pos.Latitude, 'f', -1, 64),
		strconv.FormatFloat(pos.Longitude, 'f', -1, 64))
}

type jsonDocument struct {
	Astronauts jsonAstronauts `json:"astronauts"`
	ISS        jsonIss        `json:"iss"`
}

type jsonAstronauts struct {
	Message string                       `json:"message,omitempty"`
	Number  *int                         `json:"number,omitempty"`
	People  []domain.AstronautAssignment `json:"people,omitempty"`
	Error   string                       `json:"error,omitempty"`
}

type jsonIss struct {
	Message    string              `json:"message,omitempty"`
	Position   *domain.IssPosition `json:"iss_position,omitempty"`
	Timestamp  int64               `json:"timestamp,omitempty"`
	ObservedAt string              `json:"observed_at,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// WriteJSON emits both outcomes as one JSON document; failed paths carry only "error".
func WriteJSON(out io.Writer, res Results, zone *time.Location) error {
	var doc jsonDocument

	if res.Astronauts.Err != nil {
		doc.Astronauts.Error = res.Astronauts.Err.Error()
	} else {
		roster := res.Astronauts.Roster
		doc.Astronauts = jsonAstronauts{
			Message: roster.Message,
			Number:  &roster.Number,
			People:  roster.People,
		}
	}

	if res.ISS.Err != nil {
		doc.ISS.Error = res.ISS.Err.Error()
	} else {
		report := res.ISS.Report
		pos := report.Position
		doc.ISS = jsonIss{
			Message:    report.Message,
			Position:   &pos,
			Timestamp:  report.Timestamp,
			ObservedAt: report.ObservedAt(zone).Format(time.RFC3339),
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
