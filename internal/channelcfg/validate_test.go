package channelcfg

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *ChannelConfig {
	return &ChannelConfig{
		Ingest: IngestConfig{
			Mode:       ModeCaller,
			TargetHost: "feed.example.net",
			TargetPort: 9000,
			LatencyMs:  120,
		},
	}
}

func problems(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return ve.Problems
}

func TestValidateAcceptsMinimalCaller(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateCallerRequiresTarget(t *testing.T) {
	cfg := validConfig()
	cfg.Ingest.TargetHost = ""
	cfg.Ingest.TargetPort = 80

	p := problems(t, cfg.Validate())
	if _, ok := p["ingest.targetHost"]; !ok {
		t.Error("missing targetHost problem")
	}
	if msg, ok := p["ingest.targetPort"]; !ok {
		t.Error("missing targetPort problem")
	} else if !strings.Contains(msg, "1024") {
		t.Errorf("targetPort message %q does not cite the unprivileged floor", msg)
	}
}

func TestValidateListenerIgnoresCallerFields(t *testing.T) {
	cfg := &ChannelConfig{
		Ingest: IngestConfig{Mode: ModeListener, ListenPort: 5000},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("listener without target host rejected: %v", err)
	}
}

func TestValidateListenerPortRange(t *testing.T) {
	cfg := &ChannelConfig{Ingest: IngestConfig{Mode: ModeListener, ListenPort: 70000}}
	p := problems(t, cfg.Validate())
	if _, ok := p["ingest.listenPort"]; !ok {
		t.Error("missing listenPort problem")
	}
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := &ChannelConfig{Ingest: IngestConfig{Mode: "rendezvous"}}
	p := problems(t, cfg.Validate())
	if _, ok := p["ingest.mode"]; !ok {
		t.Error("missing mode problem")
	}
}

func TestValidateKeyLengthOnlyWithPassphrase(t *testing.T) {
	cfg := validConfig()
	cfg.Ingest.KeyLength = 13
	if err := cfg.Validate(); err != nil {
		t.Fatalf("key length must be ignored without passphrase: %v", err)
	}

	cfg.Ingest.Passphrase = "s3cret-passphrase"
	p := problems(t, cfg.Validate())
	if _, ok := p["ingest.keyLength"]; !ok {
		t.Error("missing keyLength problem")
	}

	for _, kl := range []int{16, 24, 32} {
		cfg.Ingest.KeyLength = kl
		if err := cfg.Validate(); err != nil {
			t.Errorf("key length %d rejected: %v", kl, err)
		}
	}
}

func TestValidateMulticast(t *testing.T) {
	cfg := validConfig()
	cfg.Output = OutputConfig{MulticastEnabled: true, MulticastIP: "10.0.0.1", MulticastPort: 5000}
	p := problems(t, cfg.Validate())
	if _, ok := p["output.multicastIp"]; !ok {
		t.Error("unicast address accepted as multicast IP")
	}

	cfg.Output.MulticastIP = "239.1.2.3"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid multicast config rejected: %v", err)
	}

	cfg.Output.MulticastPort = 100
	p = problems(t, cfg.Validate())
	if _, ok := p["output.multicastPort"]; !ok {
		t.Error("missing multicastPort problem")
	}

	// Disabled output skips all multicast checks.
	cfg.Output = OutputConfig{MulticastEnabled: false, MulticastIP: "not-an-ip"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled output still validated: %v", err)
	}
}

func TestValidateRecording(t *testing.T) {
	cfg := validConfig()
	cfg.Recording = RecordingConfig{Enabled: true, SegmentSeconds: -1}
	p := problems(t, cfg.Validate())
	if _, ok := p["recording.path"]; !ok {
		t.Error("missing recording.path problem")
	}
	if _, ok := p["recording.segmentSeconds"]; !ok {
		t.Error("missing segmentSeconds problem")
	}
}

func TestValidatePublish(t *testing.T) {
	cfg := validConfig()
	cfg.Publish = PublishConfig{Enabled: true, VideoBitrateKbps: -100}
	p := problems(t, cfg.Validate())
	if _, ok := p["publish.targetUrl"]; !ok {
		t.Error("missing publish.targetUrl problem")
	}
	if _, ok := p["publish.videoBitrateKbps"]; !ok {
		t.Error("missing videoBitrateKbps problem")
	}
}

func TestValidateAggregatesAllProblems(t *testing.T) {
	cfg := &ChannelConfig{
		Ingest:    IngestConfig{Mode: "bad", LatencyMs: -1},
		Recording: RecordingConfig{Enabled: true},
		Publish:   PublishConfig{Enabled: true},
	}
	p := problems(t, cfg.Validate())
	if len(p) < 4 {
		t.Fatalf("got %d problems, want every violation reported: %v", len(p), p)
	}
}

func TestValidationErrorMessageIsDeterministic(t *testing.T) {
	ve := &ValidationError{Problems: map[string]string{
		"b.field": "second",
		"a.field": "first",
	}}
	msg := ve.Error()
	if strings.Index(msg, "a.field") > strings.Index(msg, "b.field") {
		t.Errorf("fields not sorted in %q", msg)
	}
	if !strings.Contains(msg, "2 problem(s)") {
		t.Errorf("message %q missing problem count", msg)
	}
}
