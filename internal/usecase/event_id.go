package usecase

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/V4T54L/honeytail/internal/domain"
)

// Accept reports whether an event has a real connection target. Events
// without a truthy dst_port and dst_ip are startup or noise records.
func Accept(event domain.NormalizedEvent) bool {
	return truthy(event.DstPort) && truthy(event.DstIP)
}

// DedupKey renders the canonical fields in fixed order, pipe-delimited.
func DedupKey(event domain.NormalizedEvent) string {
	parts := []string{
		render(event.Timestamp),
		render(event.SrcIP),
		render(event.SrcPort),
		render(event.DstIP),
		render(event.DstPort),
		event.AttackType,
		render(event.LogType),
	}
	return strings.ToValidUTF8(strings.Join(parts, "|"), "�")
}

// EventID returns the hex SHA-1 of the event's dedup key.
func EventID(event domain.NormalizedEvent) string {
	sum := sha1.Sum([]byte(DedupKey(event)))
	return hex.EncodeToString(sum[:])
}

// AssignEventID sets event.EventID from its canonical fields.
func AssignEventID(event *domain.NormalizedEvent) {
	event.EventID = EventID(*event)
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x != ""
		}
		return f != 0
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
