// Package analysis samples per-channel transport-stream feeds through an
// external analyzer tool and serves the parsed statistics through a
// short-TTL cache.
package analysis

import "time"

// nullPID is the MPEG-TS null-packet PID; it never appears in results.
const nullPID = 8191

// BitrateStat is the feed-level bitrate reading.
type BitrateStat struct {
	TotalBitsPerSecond int64  `json:"totalBitsPerSecond"`
	TotalMbps          string `json:"totalMbps"`
}

// PidStat is the per-PID breakdown; ordered by descending bitrate.
type PidStat struct {
	PID             int     `json:"pid"`
	Type            string  `json:"type"`
	BitsPerSecond   int64   `json:"bitsPerSecond"`
	Mbps            string  `json:"mbps"`
	PercentOfTotal  float64 `json:"percentOfTotal"`
	Scrambled       bool    `json:"scrambled"`
	Discontinuities int64   `json:"discontinuities"`
}

// ServiceInfo describes one program in the transport stream.
type ServiceInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Type     string `json:"type"`
	PMTPID   int    `json:"pmtPid"`
	PCRPID   int    `json:"pcrPid"`
}

// StreamAnalysis is the latest-only sample for one channel. When Available is
// false only Error and Timestamp are meaningful. Samples are superseded, never
// mutated in place.
type StreamAnalysis struct {
	Available      bool          `json:"available"`
	Timestamp      time.Time     `json:"timestamp"`
	Error          string        `json:"error,omitempty"`
	Bitrate        *BitrateStat  `json:"bitrate,omitempty"`
	PIDs           []PidStat     `json:"pids,omitempty"`
	Services       []ServiceInfo `json:"services,omitempty"`
	Packets        int64         `json:"packets,omitempty"`
	InvalidSyncs   int64         `json:"invalidSyncs,omitempty"`
	SuspectIgnored int64         `json:"suspectIgnored,omitempty"`
}

// QuickReading is the lightweight bitrate-only sample used by the summary
// endpoint.
type QuickReading struct {
	ChannelID     int64     `json:"channelId"`
	Available     bool      `json:"available"`
	Timestamp     time.Time `json:"timestamp"`
	Error         string    `json:"error,omitempty"`
	BitsPerSecond int64     `json:"bitsPerSecond,omitempty"`
	Mbps          string    `json:"mbps,omitempty"`
}
