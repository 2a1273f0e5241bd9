// Package channelcfg holds the declarative per-channel configuration, its
// validation rules, and the apply (persist + restart) transaction.
package channelcfg

// IngestMode selects the SRT connection role for the receive leg.
type IngestMode string

const (
	ModeCaller   IngestMode = "caller"
	ModeListener IngestMode = "listener"
)

// IngestConfig describes the SRT receiver.
type IngestConfig struct {
	Mode IngestMode `json:"mode"`

	// Caller mode: where to connect.
	TargetHost string `json:"targetHost,omitempty"`
	TargetPort int    `json:"targetPort,omitempty"`

	// Listener mode: where to accept.
	ListenPort int `json:"listenPort,omitempty"`

	LatencyMs            int `json:"latencyMs,omitempty"`
	BandwidthOverheadPct int `json:"bandwidthOverheadPct,omitempty"`

	// Optional encryption.
	Passphrase string `json:"passphrase,omitempty"`
	KeyLength  int    `json:"keyLength,omitempty"` // 16, 24 or 32 bytes
}

// OutputConfig describes the optional multicast re-emission of the feed.
type OutputConfig struct {
	MulticastEnabled bool   `json:"multicastEnabled"`
	MulticastIP      string `json:"multicastIp,omitempty"`
	MulticastPort    int    `json:"multicastPort,omitempty"`
}

// RecordingConfig describes the recorder.
type RecordingConfig struct {
	Enabled          bool   `json:"enabled"`
	Path             string `json:"path,omitempty"`
	FilenameTemplate string `json:"filenameTemplate,omitempty"`
	SegmentSeconds   int    `json:"segmentSeconds,omitempty"`
	MaxSegments      int    `json:"maxSegments,omitempty"`
	RepackToMP4      bool   `json:"repackToMp4"`
}

// PublishConfig describes the RTMP re-publisher.
type PublishConfig struct {
	Enabled          bool   `json:"enabled"`
	TargetURL        string `json:"targetUrl,omitempty"`
	StreamKey        string `json:"streamKey,omitempty"`
	VideoCodec       string `json:"videoCodec,omitempty"`
	VideoBitrateKbps int    `json:"videoBitrateKbps,omitempty"`
	AudioCodec       string `json:"audioCodec,omitempty"`
	AudioBitrateKbps int    `json:"audioBitrateKbps,omitempty"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
	QualityPreset    string `json:"qualityPreset,omitempty"`
}

// ChannelConfig is the full declarative configuration of one channel.
// Owned by the channel configuration store; this package only validates it
// and drives the save+restart transaction.
type ChannelConfig struct {
	Ingest    IngestConfig    `json:"ingest"`
	Output    OutputConfig    `json:"output"`
	Recording RecordingConfig `json:"recording"`
	Publish   PublishConfig   `json:"publish"`
}
