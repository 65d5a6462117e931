package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openNotify(t *testing.T, issStatus int) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/astros.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"message":"success","number":1,"people":[{"name":"Sunita Williams","craft":"ISS"}]}`)
	})
	mux.HandleFunc("/iss-now.json", func(w http.ResponseWriter, _ *http.Request) {
		if issStatus != http.StatusOK {
			w.WriteHeader(issStatus)
			return
		}
		_, _ = io.WriteString(w, `{"message":"success","timestamp":1000000000,"iss_position":{"latitude":"10.5","longitude":"20.25"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("ASTROS_URL", srv.URL+"/astros.json")
	t.Setenv("ISS_URL", srv.URL+"/iss-now.json")
	t.Setenv("TIME_ZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("FETCH_MAX_RETRIES", "0")
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootPrintsBothReports(t *testing.T) {
	openNotify(t, http.StatusOK)

	out, errOut, err := execute(t)
	require.NoError(t, err)
	assert.Empty(t, errOut)
	assert.Equal(t, "Found 1 astronauts in Space:\n"+
		"-------------------------\n"+
		"Sunita Williams on ISS\n"+
		"-------------------------\n"+
		"As of September 9, 2001 at 1:46:40 AM UTC\n"+
		"ISS position: latitude=10.5, longitude=20.25\n", out)
}

func TestRootFailsWhenAnyReportFails(t *testing.T) {
	openNotify(t, http.StatusServiceUnavailable)

	out, errOut, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, out, "Sunita Williams on ISS")
	assert.Contains(t, errOut, "error: iss report: fetch:")
}

func TestRootJSONFormatFlag(t *testing.T) {
	openNotify(t, http.StatusOK)

	out, _, err := execute(t, "--format", "json")
	require.NoError(t, err)

	var doc struct {
		Astronauts struct {
			Number int `json:"number"`
		} `json:"astronauts"`
		ISS struct {
			ObservedAt string `json:"observed_at"`
		} `json:"iss"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 1, doc.Astronauts.Number)
	assert.Equal(t, "2001-09-09T01:46:40Z", doc.ISS.ObservedAt)
}

func TestAstronautsSubcommand(t *testing.T) {
	openNotify(t, http.StatusServiceUnavailable)

	out, _, err := execute(t, "astronauts")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 astronauts in Space:")
	assert.NotContains(t, out, "As of")
}

func TestIssSubcommand(t *testing.T) {
	openNotify(t, http.StatusOK)

	out, _, err := execute(t, "iss")
	require.NoError(t, err)
	assert.Equal(t, "As of September 9, 2001 at 1:46:40 AM UTC\nISS position: latitude=10.5, longitude=20.25\n", out)
}

func TestRejectsUnknownFormat(t *testing.T) {
	openNotify(t, http.StatusOK)

	_, _, err := execute(t, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
