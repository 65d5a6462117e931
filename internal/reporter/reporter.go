package reporter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-orbit-reporter/internal/domain"
	"github.com/samvad-hq/samvad-orbit-reporter/internal/logger"
	"github.com/samvad-hq/samvad-orbit-reporter/internal/metrics"
	"github.com/samvad-hq/samvad-orbit-reporter/pkg/decoder"
)

const (
	Separator = "-------------------------"

	// LongDateTimeLayout renders e.g. "September 9, 2001 at 1:46:40 AM UTC".
	LongDateTimeLayout = "January 2, 2006 at 3:04:05 PM MST"
)

// Fetcher returns the body of a GET to url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Endpoints are the two fixed URLs the reporter reads.
type Endpoints struct {
	AstronautsURL string
	IssURL        string
}

// Reporter runs fetch, decode and format for each endpoint. It keeps no state between calls.
type Reporter struct {
	fetcher   Fetcher
	endpoints Endpoints
	zone      *time.Location
	log       logger.Logger
}

type Option func(*Reporter)

// WithZone sets the zone used for "As of" lines; nil means time.Local.
func WithZone(zone *time.Location) Option {
	return func(r *Reporter) { r.zone = zone }
}

func WithLogger(log logger.Logger) Option {
	return func(r *Reporter) {
		if log != nil {
			r.log = log
		}
	}
}

// New builds a Reporter over the given fetcher.
func New(f Fetcher, endpoints Endpoints, opts ...Option) *Reporter {
	r := &Reporter{
		fetcher:   f,
		endpoints: endpoints,
		log:       logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AstronautRoster fetches and decodes the roster.
func (r *Reporter) AstronautRoster(ctx context.Context) (domain.AstronautRoster, error) {
	body, err := r.fetch(ctx, EndpointAstronauts, r.endpoints.AstronautsURL)
	if err != nil {
		return domain.AstronautRoster{}, err
	}
	roster, err := decoder.DecodeAstronautRoster(body)
	if err != nil {
		return domain.AstronautRoster{}, &ReporterError{Endpoint: EndpointAstronauts, Stage: StageDecode, Err: err}
	}
	return roster, nil
}

// IssReport fetches and decodes the current ISS position.
func (r *Reporter) IssReport(ctx context.Context) (domain.IssReport, error) {
	body, err := r.fetch(ctx, EndpointISS, r.endpoints.IssURL)
	if err != nil {
		return domain.IssReport{}, err
	}
	report, err := decoder.DecodeIssReport(body)
	if err != nil {
		return domain.IssReport{}, &ReporterError{Endpoint: EndpointISS, Stage: StageDecode, Err: err}
	}
	return report, nil
}

// ReportAstronauts returns the formatted roster block.
func (r *Reporter) ReportAstronauts(ctx context.Context) (string, error) {
	roster, err := r.AstronautRoster(ctx)
	if err != nil {
		return "", err
	}
	return FormatAstronauts(roster), nil
}

// ReportIssPosition returns the position and its "As of" line.
func (r *Reporter) ReportIssPosition(ctx context.Context) (domain.IssPosition, string, error) {
	report, err := r.IssReport(ctx)
	if err != nil {
		return domain.IssPosition{}, "", err
	}
	return report.Position, FormatIssLine(report, r.zone), nil
}

func (r *Reporter) fetch(ctx context.Context, endpoint Endpoint, url string) ([]byte, error) {
	body, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &ReporterError{Endpoint: endpoint, Stage: StageFetch, Err: err}
	}
	r.log.DebugObj("raw response received", "raw_response", map[string]any{
		"endpoint": string(endpoint),
		"body":     string(body),
	})
	return body, nil
}

// FormatAstronauts renders the header, separators and one "<name> on <craft>" line per person.
// The count comes from the payload's number field as received.
func FormatAstronauts(roster domain.AstronautRoster) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d astronauts in Space:\n", roster.Number)
	b.WriteString(Separator + "\n")
	for _, p := range roster.People {
		fmt.Fprintf(&b, "%s on %s\n", p.Name, p.Craft)
	}
	b.WriteString(Separator + "\n")
	return b.String()
}

// FormatIssLine renders "As of <long date-time>" for the report timestamp in zone.
func FormatIssLine(report domain.IssReport, zone *time.Location) string {
	return "As of " + report.ObservedAt(zone).Format(LongDateTimeLayout)
}

// AstronautsResult is the outcome of the roster path.
type AstronautsResult struct {
	Roster domain.AstronautRoster
	Text   string
	Err    error
}

// IssResult is the outcome of the ISS path.
type IssResult struct {
	Report domain.IssReport
	Text   string
	Err    error
}

// Results holds both outcomes; each is independent of the other.
type Results struct {
	Astronauts AstronautsResult
	ISS        IssResult
}

// Err joins the per-endpoint errors, nil when both succeeded.
func (r Results) Err() error {
	return errors.Join(r.Astronauts.Err, r.ISS.Err)
}

// RunAll runs both reports in parallel. A failure on one path never cancels or hides the other.
func (r *Reporter) RunAll(ctx context.Context) Results {
	var (
		res Results
		g   errgroup.Group
	)

	g.Go(func() error {
		roster, err := r.AstronautRoster(ctx)
		if err != nil {
			res.Astronauts = AstronautsResult{Err: err}
			r.record(EndpointAstronauts, err)
			return nil
		}
		res.Astronauts = AstronautsResult{Roster: roster, Text: FormatAstronauts(roster)}
		r.record(EndpointAstronauts, nil)
		return nil
	})
	g.Go(func() error {
		report, err := r.IssReport(ctx)
		if err != nil {
			res.ISS = IssResult{Err: err}
			r.record(EndpointISS, err)
			return nil
		}
		res.ISS = IssResult{Report: report, Text: FormatIssLine(report, r.zone)}
		r.record(EndpointISS, nil)
		return nil
	})
	_ = g.Wait()

	return res
}

func (r *Reporter) record(endpoint Endpoint, err error) {
	if err == nil {
		metrics.ReportsTotal.WithLabelValues(string(endpoint), "ok").Inc()
		return
	}
	metrics.ReportsTotal.WithLabelValues(string(endpoint), "error").Inc()
	r.log.ErrorObj("report failed", "report_error", map[string]any{
		"endpoint": string(endpoint),
		"error":    err.Error(),
	})
}
