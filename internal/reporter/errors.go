package reporter

import "fmt"

// Endpoint names one of the two report paths.
type Endpoint string

const (
	EndpointAstronauts Endpoint = "astronauts"
	EndpointISS        Endpoint = "iss"
)

// Stage tells which step of the pipeline failed.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageDecode Stage = "decode"
)

// ReporterError wraps the *fetcher.FetchError or *decoder.DecodeError that stopped a report.
type ReporterError struct {
	Endpoint Endpoint
	Stage    Stage
	Err      error
}

func (e *ReporterError) Error() string {
	return fmt.Sprintf("%s report: %s: %v", e.Endpoint, e.Stage, e.Err)
}

func (e *ReporterError) Unwrap() error { return e.Err }
