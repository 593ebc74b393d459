package middleware

import (
	"context"
	"crypto/subtle"
)

// StaticKeys validates API keys against a fixed list loaded from configuration.
type StaticKeys struct {
	keys [][]byte
}

// NewStaticKeys creates a StaticKeys. Empty entries are ignored.
func NewStaticKeys(keys []string) *StaticKeys {
	s := &StaticKeys{}
	for _, k := range keys {
		if k != "" {
			s.keys = append(s.keys, []byte(k))
		}
	}
	return s
}

// Empty reports whether no keys are configured.
func (s *StaticKeys) Empty() bool {
	return len(s.keys) == 0
}

func (s *StaticKeys) IsValid(ctx context.Context, key string) (bool, error) {
	candidate := []byte(key)
	valid := false
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare(k, candidate) == 1 {
			valid = true
		}
	}
	return valid, nil
}
