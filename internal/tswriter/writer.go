// Package tswriter implements C1 TSWriter (spec §4.1): normalises records
// into points, batches writes, retries transient failures with linear
// backoff, and relies on the store's timestamp-plus-identity overwrite
// semantics to implement correction. No time-series store client exists in
// the example pack (no repo uses InfluxDB); the HTTP write client is
// authored fresh, grounded on the general authenticated-HTTP-client idiom
// used throughout the pack for vendor REST clients (base URL + header auth
// + timeout + status check, e.g. cloudmanic-massive/internal/api/client.go).
package tswriter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wavepilot/ingest/internal/config"
	"github.com/wavepilot/ingest/internal/ingesterr"
	"github.com/wavepilot/ingest/internal/secretstore"
)

const (
	// BatchSize is the write batch size for bulk paths (spec §4.1).
	BatchSize = 1000
	// MaxAttempts is the maximum number of attempts per batch write
	// before the error surfaces to the caller (spec §4.1).
	MaxAttempts = 3
)

// Writer is C1 TSWriter. Initialisation is lazy: the first call fetches
// database credentials from the secret store and connects; subsequent
// calls reuse the connection. Close() releases resources and reverts to
// uninitialised.
type Writer struct {
	endpoint string
	port     int
	database string
	secretARN string

	secrets *secretstore.Client
	log     zerolog.Logger

	httpClient *http.Client

	mu          sync.Mutex
	initialized bool
	authToken   string
}

// New builds a Writer. It does not connect; connection happens lazily on
// the first write call.
func New(cfg *config.Config, secrets *secretstore.Client, log zerolog.Logger) *Writer {
	return &Writer{
		endpoint:  cfg.InfluxDBEndpoint,
		port:      cfg.InfluxDBPort,
		database:  cfg.InfluxDBDatabase,
		secretARN: cfg.InfluxDBSecretARN,
		secrets:   secrets,
		log:       log.With().Str("component", "tswriter").Logger(),
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// initialize fetches credentials (if a secret ARN is configured) and marks
// the writer ready. It is a no-op once initialized.
func (w *Writer) initialize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.initialized {
		return nil
	}
	if w.endpoint == "" {
		return ingesterr.ConfigMissing(fmt.Errorf("INFLUXDB_ENDPOINT not configured"))
	}
	if w.secretARN != "" && w.secrets != nil {
		values, err := w.secrets.GetSecret(ctx, w.secretARN)
		if err != nil {
			return ingesterr.AuthFail(fmt.Errorf("fetch influxdb credentials: %w", err))
		}
		if tok := values["token"]; tok != "" {
			w.authToken = tok
		} else if pw := values["password"]; pw != "" {
			w.authToken = pw
		}
	}
	w.initialized = true
	return nil
}

// baseURL returns the write endpoint's scheme+host, appending the
// configured port unless endpoint already embeds one (as it does in
// tests, which point at an httptest server's full URL).
func (w *Writer) baseURL() string {
	if strings.Contains(w.endpoint, "://") {
		return w.endpoint
	}
	return fmt.Sprintf("%s:%d", w.endpoint, w.port)
}

// Close releases resources and reverts the writer to uninitialised.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.initialized = false
	w.authToken = ""
	return nil
}

// writeBatch sends one batch as a single request; it is the atomicity unit
// the spec describes (spec §4.1 "Ordering & atomicity").
func (w *Writer) writeBatch(ctx context.Context, points []Point) error {
	if err := w.initialize(ctx); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	body, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}

	url := fmt.Sprintf("%s/api/v3/write_lp?db=%s&precision=millisecond", w.baseURL(), w.database)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.authToken)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return ingesterr.Transient(fmt.Errorf("write request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ingesterr.AuthFail(fmt.Errorf("write rejected (status %d)", resp.StatusCode))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return ingesterr.Transient(fmt.Errorf("write rejected (status %d)", resp.StatusCode))
	default:
		return ingesterr.FatalWriter(fmt.Errorf("write rejected (status %d)", resp.StatusCode))
	}
}

// writeWithRetry attempts writeBatch up to MaxAttempts times, waiting
// 1s*attempt between tries (linear backoff, spec §4.1). It only retries
// TRANSIENT errors; AUTH_FAIL and FATAL_WRITER surface immediately.
func (w *Writer) writeWithRetry(ctx context.Context, points []Point) error {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err := w.writeBatch(ctx, points)
		if err == nil {
			return nil
		}
		lastErr = err
		if ingesterr.Classify(err) != ingesterr.KindTransient {
			return err
		}
		if attempt == MaxAttempts {
			break
		}
		w.log.Warn().Err(err).Int("attempt", attempt).Msg("transient write failure, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return lastErr
}

// writeBatched splits points into BatchSize chunks and writes each with
// retry, in order.
func (w *Writer) writeBatched(ctx context.Context, points []Point) error {
	for start := 0; start < len(points); start += BatchSize {
		end := start + BatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := w.writeWithRetry(ctx, points[start:end]); err != nil {
			return err
		}
	}
	return nil
}
