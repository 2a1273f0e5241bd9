package channelcfg

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// Unprivileged port floor; the per-channel services never bind below it.
const (
	minPort = 1024
	maxPort = 65535
)

// ValidationError aggregates field errors so a caller sees every violation at
// once, not just the first.
type ValidationError struct {
	Problems map[string]string
}

func (v *ValidationError) Error() string {
	if len(v.Problems) == 0 {
		return "no validation errors"
	}

	keys := make([]string, 0, len(v.Problems))
	for k := range v.Problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s; ", k, v.Problems[k])
	}
	out := strings.TrimSuffix(b.String(), "; ")
	return fmt.Sprintf("validation failed (%d problem(s)); %s", len(v.Problems), out)
}

func (v *ValidationError) add(field, msg string) {
	if v.Problems == nil {
		v.Problems = make(map[string]string)
	}
	v.Problems[field] = msg
}

func (v *ValidationError) empty() bool { return len(v.Problems) == 0 }

// Validate runs all invariants. Pure function: no I/O, no store access.
// Returns nil when the config is acceptable.
func (cfg *ChannelConfig) Validate() error {
	ve := &ValidationError{}

	// ----- Ingest -----
	switch cfg.Ingest.Mode {
	case ModeCaller:
		if cfg.Ingest.TargetHost == "" {
			ve.add("ingest.targetHost", "is required in caller mode")
		}
		if cfg.Ingest.TargetPort < minPort || cfg.Ingest.TargetPort > maxPort {
			ve.add("ingest.targetPort", fmt.Sprintf("must be between %d and %d", minPort, maxPort))
		}
	case ModeListener:
		if cfg.Ingest.ListenPort < minPort || cfg.Ingest.ListenPort > maxPort {
			ve.add("ingest.listenPort", fmt.Sprintf("must be between %d and %d", minPort, maxPort))
		}
	default:
		ve.add("ingest.mode", `invalid value (allowed: "caller"|"listener")`)
	}

	if cfg.Ingest.LatencyMs < 0 {
		ve.add("ingest.latencyMs", "must not be negative")
	}
	if cfg.Ingest.BandwidthOverheadPct < 0 || cfg.Ingest.BandwidthOverheadPct > 100 {
		ve.add("ingest.bandwidthOverheadPct", "must be between 0 and 100")
	}
	if cfg.Ingest.Passphrase != "" {
		switch cfg.Ingest.KeyLength {
		case 16, 24, 32:
		default:
			ve.add("ingest.keyLength", "must be 16, 24 or 32 when a passphrase is set")
		}
	}

	// ----- Multicast output -----
	if cfg.Output.MulticastEnabled {
		if cfg.Output.MulticastIP == "" {
			ve.add("output.multicastIp", "is required when multicast output is enabled")
		} else if ip := net.ParseIP(cfg.Output.MulticastIP); ip == nil || !ip.IsMulticast() {
			ve.add("output.multicastIp", "must be a valid multicast IP address")
		}
		if cfg.Output.MulticastPort != 0 && (cfg.Output.MulticastPort < minPort || cfg.Output.MulticastPort > maxPort) {
			ve.add("output.multicastPort", fmt.Sprintf("must be between %d and %d", minPort, maxPort))
		}
	}

	// ----- Recording -----
	if cfg.Recording.Enabled {
		if cfg.Recording.Path == "" {
			ve.add("recording.path", "is required when recording is enabled")
		}
		if cfg.Recording.SegmentSeconds < 0 {
			ve.add("recording.segmentSeconds", "must not be negative")
		}
	}

	// ----- Publish -----
	if cfg.Publish.Enabled {
		if cfg.Publish.TargetURL == "" {
			ve.add("publish.targetUrl", "is required when publish is enabled")
		}
		if cfg.Publish.VideoBitrateKbps < 0 {
			ve.add("publish.videoBitrateKbps", "must not be negative")
		}
		if cfg.Publish.AudioBitrateKbps < 0 {
			ve.add("publish.audioBitrateKbps", "must not be negative")
		}
	}

	if ve.empty() {
		return nil
	}
	return ve
}
