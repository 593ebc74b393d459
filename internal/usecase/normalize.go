package usecase

import "github.com/V4T54L/honeytail/internal/domain"

var timestampFields = []string{"utc_time", "local_time_adjusted", "local_time"}

// Normalize maps a raw honeypot record onto the canonical event shape.
// Absent fields normalize to nil; it never fails.
func Normalize(raw domain.RawRecord) domain.NormalizedEvent {
	var ts any
	for _, field := range timestampFields {
		if v := raw[field]; v != nil {
			ts = v
			break
		}
	}

	return domain.NormalizedEvent{
		Timestamp:  ts,
		SrcIP:      raw["src_host"],
		SrcPort:    raw["src_port"],
		DstIP:      raw["dst_host"],
		DstPort:    raw["dst_port"],
		AttackType: Classify(raw["dst_port"]),
		LogType:    raw["logtype"],
	}
}
