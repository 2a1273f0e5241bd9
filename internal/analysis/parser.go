package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// wellKnownPIDs labels the standard DVB/MPEG table PIDs when the analyzer
// supplies no description of its own.
var wellKnownPIDs = map[int]string{
	0:    "PAT",
	1:    "CAT",
	16:   "NIT",
	17:   "SDT/BAT",
	18:   "EIT",
	20:   "TDT/TOT",
	8191: "Null",
}

// rawReport mirrors the analyzer's full-mode JSON output.
type rawReport struct {
	TS struct {
		Bitrate int64 `json:"bitrate"`
		Packets struct {
			Total          int64 `json:"total"`
			InvalidSyncs   int64 `json:"invalid-syncs"`
			SuspectIgnored int64 `json:"suspect-ignored"`
		} `json:"packets"`
	} `json:"ts"`
	PIDs []struct {
		ID              int    `json:"id"`
		Description     string `json:"description"`
		Bitrate         int64  `json:"bitrate"`
		Scrambled       bool   `json:"scrambled"`
		Discontinuities int64  `json:"discontinuities"`
	} `json:"pids"`
	Services []struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		Provider string `json:"provider"`
		TypeName string `json:"type-name"`
		PMTPID   int    `json:"pmt-pid"`
		PCRPID   int    `json:"pcr-pid"`
	} `json:"services"`
}

// Parse converts raw analyzer JSON into a StreamAnalysis sample.
// Returns nil when the payload is not well-formed; the caller reports that as
// available=false with a parse-failure reason.
func Parse(raw []byte, capturedAt time.Time) *StreamAnalysis {
	var report rawReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil
	}

	total := report.TS.Bitrate // 0 when the analyzer omits it

	out := &StreamAnalysis{
		Available: true,
		Timestamp: capturedAt,
		Bitrate: &BitrateStat{
			TotalBitsPerSecond: total,
			TotalMbps:          formatMbps(total, 2),
		},
		Packets:        report.TS.Packets.Total,
		InvalidSyncs:   report.TS.Packets.InvalidSyncs,
		SuspectIgnored: report.TS.Packets.SuspectIgnored,
	}

	for _, p := range report.PIDs {
		if p.ID == nullPID {
			continue
		}
		stat := PidStat{
			PID:             p.ID,
			Type:            pidTypeLabel(p.ID, p.Description),
			BitsPerSecond:   p.Bitrate,
			Mbps:            formatMbps(p.Bitrate, 3),
			Scrambled:       p.Scrambled,
			Discontinuities: p.Discontinuities,
		}
		if total > 0 {
			stat.PercentOfTotal = 100 * float64(p.Bitrate) / float64(total)
		}
		out.PIDs = append(out.PIDs, stat)
	}
	sort.SliceStable(out.PIDs, func(i, j int) bool {
		return out.PIDs[i].BitsPerSecond > out.PIDs[j].BitsPerSecond
	})

	for _, s := range report.Services {
		info := ServiceInfo{
			ID:       s.ID,
			Name:     s.Name,
			Provider: s.Provider,
			Type:     s.TypeName,
			PMTPID:   s.PMTPID,
			PCRPID:   s.PCRPID,
		}
		if info.Name == "" {
			info.Name = fmt.Sprintf("Service %d", s.ID)
		}
		if info.Type == "" {
			info.Type = "Unknown"
		}
		out.Services = append(out.Services, info)
	}

	return out
}

func pidTypeLabel(pid int, description string) string {
	if description != "" {
		return description
	}
	if label, ok := wellKnownPIDs[pid]; ok {
		return label
	}
	return "Unknown"
}

func formatMbps(bps int64, decimals int) string {
	return fmt.Sprintf("%.*f Mb/s", decimals, float64(bps)/1e6)
}
