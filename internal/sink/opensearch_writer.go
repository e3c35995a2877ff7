package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"pulseops-collector/internal/logging"
	"pulseops-collector/internal/telemetry"
)

const (
	// readyPollInterval is how often WaitReady pings the cluster.
	readyPollInterval = 2 * time.Second
	// requestTimeout caps each backend request. The run context only
	// ends at shutdown, so it cannot bound a stalled call on its own.
	requestTimeout = 10 * time.Second
)

// indexBody is the index definition created on first start. Single
// shard, no replicas: the target is a single-node cluster.
const indexBody = `{
  "settings": {"number_of_shards": 1, "number_of_replicas": 0},
  "mappings": {
    "properties": {
      "timestamp": {"type": "date"},
      "temperature": {"type": "float"},
      "windspeed": {"type": "float"},
      "status": {"type": "keyword"},
      "source": {"type": "keyword"},
      "latency_ms": {"type": "float"},
      "error": {"type": "keyword"}
    }
  }
}`

// OpenSearchWriter indexes records as individual documents with
// random IDs.
type OpenSearchWriter struct {
	client     *opensearch.Client
	index      string
	newID      func() string
	pollEvery  time.Duration
	reqTimeout time.Duration
}

// NewOpenSearchWriter connects to a single OpenSearch node.
func NewOpenSearchWriter(addr, user, pass, index string) (*OpenSearchWriter, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{addr},
		Username:  user,
		Password:  pass,
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}
	return &OpenSearchWriter{
		client:     client,
		index:      index,
		newID:      uuid.NewString,
		pollEvery:  readyPollInterval,
		reqTimeout: requestTimeout,
	}, nil
}

// WaitReady pings the cluster until it answers or maxWait elapses.
func (w *OpenSearchWriter) WaitReady(ctx context.Context, maxWait time.Duration) error {
	log := logging.FromContext(ctx)
	deadline := time.Now().Add(maxWait)
	for {
		if err := w.ping(ctx); err == nil {
			log.Info("opensearch reachable")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("opensearch not reachable after %s", maxWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollEvery):
		}
	}
}

func (w *OpenSearchWriter) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.reqTimeout)
	defer cancel()
	res, err := opensearchapi.PingRequest{}.Do(ctx, w.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping: status %d", res.StatusCode)
	}
	return nil
}

// EnsureIndex creates the target index with its mapping unless it
// already exists.
func (w *OpenSearchWriter) EnsureIndex(ctx context.Context) error {
	log := logging.FromContext(ctx)
	exists, err := w.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		log.Debug("index exists", "index", w.index)
		return nil
	}
	if err := w.createIndex(ctx); err != nil {
		return err
	}
	log.Info("index created", "index", w.index)
	return nil
}

func (w *OpenSearchWriter) indexExists(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, w.reqTimeout)
	defer cancel()
	res, err := opensearchapi.IndicesExistsRequest{Index: []string{w.index}}.Do(ctx, w.client)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", w.index, err)
	}
	res.Body.Close()
	return res.StatusCode == http.StatusOK, nil
}

func (w *OpenSearchWriter) createIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.reqTimeout)
	defer cancel()
	res, err := opensearchapi.IndicesCreateRequest{
		Index: w.index,
		Body:  strings.NewReader(indexBody),
	}.Do(ctx, w.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", w.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: status %d", w.index, res.StatusCode)
	}
	return nil
}

// WriteRecord indexes one record as a document.
func (w *OpenSearchWriter) WriteRecord(ctx context.Context, rec telemetry.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, w.reqTimeout)
	defer cancel()
	res, err := opensearchapi.IndexRequest{
		Index:      w.index,
		DocumentID: w.newID(),
		Body:       bytes.NewReader(doc),
	}.Do(ctx, w.client)
	if err != nil {
		return fmt.Errorf("index record: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index record: status %d", res.StatusCode)
	}
	return nil
}

// Close is a no-op; the underlying client has no connection state.
func (w *OpenSearchWriter) Close() error { return nil }
