package publishers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:eu-west-1:123456789012:wms-probes
      region: eu-west-1
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "http2" || enabled[1].ID != "topic" {
		t.Fatalf("expected http2 and topic enabled, got %#v", enabled)
	}

	http2, ok := reg.ByID("http2")
	if !ok {
		t.Fatalf("expected http2 by id")
	}
	if http2.HTTP.Method != "POST" || http2.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("expected http defaults, got %#v", http2.HTTP)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	})
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestValidatePublisherConfigRejectsIncompletePubSub(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:     "g",
		Type:   TypePubSub,
		PubSub: &PubSubPublisherConfig{ProjectID: "p"},
	})
	if err == nil {
		t.Fatalf("expected validation error for missing topic")
	}
}

func TestSanitizeCredentialsExpandsEnv(t *testing.T) {
	t.Setenv("WMS_TEST_SECRET", "s3cr3t")

	cfg := sanitizePublisherConfig(PublisherConfig{
		ID:   "q",
		Type: "SQS",
		SQS: &SQSPublisherConfig{
			QueueURL: " https://sqs.example/queue ",
			Region:   "eu-west-1",
			Credentials: &AWSCredentialsConfig{
				AccessKeyID:     "AKIA",
				SecretAccessKey: "${WMS_TEST_SECRET}",
			},
		},
	})
	if cfg.Type != TypeSQS {
		t.Fatalf("expected lower-cased type, got %q", cfg.Type)
	}
	if cfg.SQS.QueueURL != "https://sqs.example/queue" {
		t.Fatalf("expected trimmed queue url, got %q", cfg.SQS.QueueURL)
	}
	if cfg.SQS.Credentials == nil || cfg.SQS.Credentials.SecretAccessKey != "s3cr3t" {
		t.Fatalf("expected expanded secret, got %#v", cfg.SQS.Credentials)
	}
}

func TestValidatePublisherConfigRejectsHalfCredentials(t *testing.T) {
	t.Setenv("WMS_TEST_UNSET_SECRET", "")

	cfg := sanitizePublisherConfig(PublisherConfig{
		ID:   "topic",
		Type: TypeSNS,
		SNS: &SNSPublisherConfig{
			TopicARN: "arn:aws:sns:eu-west-1:123456789012:wms-probes",
			Region:   "eu-west-1",
			Credentials: &AWSCredentialsConfig{
				AccessKeyID:     "AKIA",
				SecretAccessKey: "${WMS_TEST_UNSET_SECRET}",
			},
		},
	})

	err := validatePublisherConfig(cfg)
	if err == nil {
		t.Fatalf("expected error for access key without secret")
	}
	if !strings.Contains(err.Error(), "secret_access_key") {
		t.Fatalf("expected error to name the missing half, got %v", err)
	}
}

func TestValidatePublisherConfigAcceptsDefaultCredentialChain(t *testing.T) {
	cfg := sanitizePublisherConfig(PublisherConfig{
		ID:   "queue",
		Type: TypeSQS,
		SQS: &SQSPublisherConfig{
			QueueURL:    "https://sqs.example/queue",
			Region:      "eu-west-1",
			Credentials: &AWSCredentialsConfig{},
		},
	})
	if cfg.SQS.Credentials != nil {
		t.Fatalf("expected empty credentials to fall back to the default chain")
	}
	if err := validatePublisherConfig(cfg); err != nil {
		t.Fatalf("validatePublisherConfig: %v", err)
	}
}

func TestLoadRegistryRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.toml")
	if err := os.WriteFile(path, []byte("publishers = []"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}
