package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadConfigsYAMLFiltersDisabled(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: hook-off
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: queue
    type: SQS
    sqs:
      uri: https://sqs.eu-west-1.amazonaws.com/123/orbit
      region: eu-west-1
      endpoint: http://localhost:4566
  - id: topic
    type: gcp_pubsub
    gcp_pubsub:
      project_id: orbit
      topic: reports
`)

	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if len(cfgs) != 2 {
		t.Fatalf("expected 2 enabled publishers, got %#v", cfgs)
	}
	if cfgs[0].Type != TypeSQS || cfgs[0].SQS.Region != "eu-west-1" || cfgs[0].SQS.Endpoint != "http://localhost:4566" {
		t.Fatalf("unexpected sqs config %#v", cfgs[0].SQS)
	}
	if cfgs[1].PubSub == nil || cfgs[1].PubSub.Topic != "reports" {
		t.Fatalf("unexpected pubsub config %#v", cfgs[1].PubSub)
	}
}

func TestLoadConfigsJSON(t *testing.T) {
	path := writeFile(t, "publishers.json", `{"publishers":[{"id":"alerts","type":"sns","sns":{"topic_arn":"arn:aws:sns:us-east-1:1:orbit","region":"us-east-1"}}]}`)

	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if len(cfgs) != 1 || cfgs[0].SNS.TopicARN != "arn:aws:sns:us-east-1:1:orbit" || cfgs[0].SNS.Region != "us-east-1" {
		t.Fatalf("unexpected configs %#v", cfgs)
	}
}

func TestLoadConfigsRejectsDuplicates(t *testing.T) {
	path := writeFile(t, "publishers.yml", `
publishers:
  - id: dup
    type: http
    http: {url: https://a.example}
  - id: dup
    type: http
    http: {url: https://b.example}
`)
	if _, err := LoadConfigs(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := []PublisherConfig{
		{ID: "h1", Type: TypeHTTP},
		{ID: "q1", Type: TypeSQS, SQS: &SQSConfig{QueueURL: "https://q"}},
		{ID: "s1", Type: TypeSNS, SNS: &SNSConfig{AWSConfig: AWSConfig{Region: "us-east-1"}}},
		{ID: "g1", Type: TypeGCPPubSub, PubSub: &GCPPubSubConfig{ProjectID: "p"}},
		{ID: "k1", Type: "kafka"},
		{Type: TypeHTTP},
	}
	for _, cfg := range cases {
		if err := validatePublisherConfig(cfg); err == nil {
			t.Fatalf("expected validation error for %#v", cfg)
		}
	}
}

func TestSanitizeHTTPDefaults(t *testing.T) {
	cfg := sanitizePublisherConfig(PublisherConfig{
		ID:   " hook ",
		Type: " HTTP ",
		HTTP: &HTTPConfig{URL: " https://example.com ", Headers: map[string]string{" ": "x", "A": " "}},
	})
	if cfg.ID != "hook" || cfg.Type != TypeHTTP {
		t.Fatalf("unexpected id/type %q %q", cfg.ID, cfg.Type)
	}
	if cfg.HTTP.Method != "POST" || cfg.HTTP.TimeoutSeconds != 5 || cfg.HTTP.Headers != nil {
		t.Fatalf("unexpected http defaults %#v", cfg.HTTP)
	}
}
