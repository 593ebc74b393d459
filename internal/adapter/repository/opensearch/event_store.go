package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/V4T54L/honeytail/internal/domain"
)

const defaultIndexName = "honeypot_events"

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"dynamic": true,
		"properties": map[string]interface{}{
			"event_id":    map[string]interface{}{"type": "keyword"},
			"attack_type": map[string]interface{}{"type": "keyword"},
			"logtype":     map[string]interface{}{"type": "keyword"},
		},
	},
}

// EventStore indexes events with the event_id as document id. Writes use
// op_type=create so an existing document is never replaced.
type EventStore struct {
	client    *opensearch.Client
	transport *http.Transport
	index     string
}

// Open creates a client for an http(s) URL. Credentials in the URL userinfo
// are used for basic auth. No request is made until Ping.
func Open(rawURL, index string) (*EventStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse opensearch url: %w", err)
	}

	cfg := opensearch.Config{}
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
		u.User = nil
	}
	cfg.Addresses = []string{u.String()}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	cfg.Transport = transport

	client, err := opensearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	if index == "" {
		index = defaultIndexName
	}
	return &EventStore{client: client, transport: transport, index: strings.ToLower(index)}, nil
}

// Ping checks that the cluster answers.
func (s *EventStore) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("opensearch ping returned %s", res.Status())
	}
	return nil
}

// EnsureUniqueIndex creates the index if it does not exist. Document ids are
// unique per index, so event_id uniqueness needs no extra constraint.
func (s *EventStore) EnsureUniqueIndex(ctx context.Context) error {
	exists, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(indexMapping)
	if err != nil {
		return err
	}
	res, err := s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		if strings.Contains(string(bodyBytes), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("failed to create index %s: %s - %s", s.index, res.Status(), string(bodyBytes))
	}
	return nil
}

// InsertIfAbsent creates the document unless its id exists. A 409 conflict
// means another write got there first.
func (s *EventStore) InsertIfAbsent(ctx context.Context, event domain.NormalizedEvent) (bool, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("failed to marshal event: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: event.EventID,
		Body:       bytes.NewReader(data),
		OpType:     "create",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		return false, nil
	}
	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return false, fmt.Errorf("opensearch index returned %s: %s", res.Status(), string(bodyBytes))
	}
	return true, nil
}

// Close releases idle connections.
func (s *EventStore) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}
