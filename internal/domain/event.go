package domain

import "errors"

// ErrDuplicateEvent is returned by an EventStore when a concurrent writer
// stored the same event_id first. Callers treat it as a successful no-op.
var ErrDuplicateEvent = errors.New("event already stored")

// RawRecord is one decoded honeypot log line. It has no fixed schema.
type RawRecord map[string]any

// NormalizedEvent is the canonical record shipped to the journal and the
// remote store. Pass-through fields keep the types found in the raw record;
// numbers are json.Number.
type NormalizedEvent struct {
	Timestamp  any    `json:"timestamp"`
	SrcIP      any    `json:"src_ip"`
	SrcPort    any    `json:"src_port"`
	DstIP      any    `json:"dst_ip"`
	DstPort    any    `json:"dst_port"`
	AttackType string `json:"attack_type"`
	LogType    any    `json:"logtype"`
	EventID    string `json:"event_id,omitempty"`
}
