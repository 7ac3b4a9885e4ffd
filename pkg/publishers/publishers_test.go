package publishers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: hook
    type: HTTP
    enabled: false
    http:
      url: " https://hooks.example/a "
  - id: queue
    type: sqs
    sqs:
      region: ap-south-1
      queue_url: https://sqs.example/articles
  - id: stream
    type: kafka
    kafka:
      brokers: ["kafka-1:9092", " "]
      topic: articles
`)

	reg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "queue" || enabled[1].ID != "stream" {
		t.Fatalf("unexpected enabled set %#v", enabled)
	}

	hook, ok := reg.ByID("hook")
	if !ok || hook.Type != TypeHTTP || hook.HTTP.URL != "https://hooks.example/a" || hook.HTTP.Method != "POST" {
		t.Fatalf("http entry not sanitized: %#v", hook.HTTP)
	}
	queue, _ := reg.ByID("queue")
	if queue.SQS.Region != "ap-south-1" {
		t.Fatalf("inline aws block not decoded: %#v", queue.SQS)
	}
	stream, _ := reg.ByID("stream")
	if len(stream.Kafka.Brokers) != 1 || stream.Kafka.ClientID != kafkaDefaultClientID {
		t.Fatalf("kafka entry not sanitized: %#v", stream.Kafka)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "publishers.json", `{"publishers":[{"id":"ps","type":"pubsub","pubsub":{"project_id":"p","topic":"t"}}]}`)

	reg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if all := reg.All(); len(all) != 1 || all[0].PubSub.Topic != "t" {
		t.Fatalf("unexpected entries %#v", all)
	}
}

func TestLoadConfigRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"empty":     "publishers: []",
		"duplicate": "publishers:\n  - {id: a, type: http, http: {url: x}}\n  - {id: a, type: http, http: {url: y}}",
		"unknown":   "publishers:\n  - {id: a, type: carrier-pigeon}",
		"broken":    "publishers: [",
	}
	for name, raw := range cases {
		if _, err := LoadConfig(writeFile(t, name+".yaml", raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadConfig(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestValidateRequiresTypeBlock(t *testing.T) {
	cases := []struct {
		cfg  PublisherConfig
		want string
	}{
		{PublisherConfig{ID: "h", Type: TypeHTTP}, "http block"},
		{PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSConfig{QueueURL: "u"}}, "sqs.region"},
		{PublisherConfig{ID: "s", Type: TypeSNS, SNS: &SNSConfig{AWSConfig: AWSConfig{Region: "r"}}}, "sns.topic_arn"},
		{PublisherConfig{ID: "p", Type: TypePubSub, PubSub: &PubSubConfig{ProjectID: "p"}}, "pubsub.topic"},
		{PublisherConfig{ID: "k", Type: TypeKafka, Kafka: &KafkaConfig{Topic: "t"}}, "kafka.brokers"},
	}
	for _, tc := range cases {
		err := validate(sanitize(tc.cfg))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("validate(%s) = %v, want mention of %q", tc.cfg.ID, err, tc.want)
		}
	}
}
