// Package newsstore implements C2 NewsStore (spec §4.2): sanitises and
// persists news bodies to object storage, and records metadata via
// TSWriter.
package newsstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wavepilot/ingest/internal/model"
	"github.com/wavepilot/ingest/internal/objectstore"
	"github.com/wavepilot/ingest/internal/readability"
	"github.com/wavepilot/ingest/internal/tswriter"
)

const (
	fetchTimeout  = 10 * time.Second
	minContentLen = 100
	maxContentLen = 50000
)

// articleBody is the JSON shape uploaded to the object store.
type articleBody struct {
	ID       string              `json:"id"`
	Ticker   string              `json:"ticker"`
	Title    string              `json:"title"`
	URL      string              `json:"url"`
	Source   string              `json:"source"`
	Content  string              `json:"content,omitempty"`
	Insights []model.NewsInsight `json:"insights,omitempty"`
}

// Store is C2 NewsStore.
type Store struct {
	objects *objectstore.Client
	writer  *tswriter.Writer
	http    *http.Client
	log     zerolog.Logger
}

// New builds a Store. objects may be nil or unconfigured, in which case
// object-store steps are skipped and S3Path is omitted (spec I4).
func New(objects *objectstore.Client, writer *tswriter.Writer, log zerolog.Logger) *Store {
	return &Store{
		objects: objects,
		writer:  writer,
		http:    &http.Client{Timeout: fetchTimeout},
		log:     log.With().Str("component", "newsstore").Logger(),
	}
}

// Save processes a batch of news metadata records: for each, optionally
// fetches and extracts article content, uploads the object-store body,
// stamps S3Path, and writes metadata via TSWriter. A single item's
// failure does not abort the batch (spec §4.2).
func (s *Store) Save(ctx context.Context, items []model.NewsItem, fetchContent bool) {
	for _, item := range items {
		if err := s.saveOne(ctx, item, fetchContent); err != nil {
			s.log.Error().Err(err).Str("id", item.ID).Str("ticker", item.Ticker).Msg("failed to save news item, skipping")
		}
	}
}

func (s *Store) saveOne(ctx context.Context, item model.NewsItem, fetchContent bool) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Ticker = model.NormalizeTicker(item.Ticker)

	hasContent := false
	content := ""

	if fetchContent {
		var err error
		content, err = s.fetchAndExtract(ctx, item.URL)
		if err != nil {
			s.log.Warn().Err(err).Str("id", item.ID).Msg("content fetch failed, continuing without content")
		} else if len(content) < minContentLen {
			s.log.Info().Str("id", item.ID).Int("length", len(content)).Msg("extracted content too short, discarding")
			content = ""
		} else {
			if len(content) > maxContentLen {
				content = content[:maxContentLen]
			}
			hasContent = true
		}
	}

	if s.objects != nil && s.objects.Configured() {
		key := objectKey(item)
		body := articleBody{
			ID:       item.ID,
			Ticker:   item.Ticker,
			Title:    item.Title,
			URL:      item.URL,
			Source:   item.Source,
			Insights: item.Insights,
		}
		if hasContent {
			body.Content = content
		}
		payload, err := marshalBody(body)
		if err != nil {
			return fmt.Errorf("marshal article body: %w", err)
		}

		meta := map[string]string{
			"news-id":       tswriter.SanitizeObjectMeta(item.ID),
			"ticker":        tswriter.SanitizeObjectMeta(item.Ticker),
			"source":        tswriter.SanitizeObjectMeta(item.Source),
			"published-at":  tswriter.SanitizeObjectMeta(item.Time.Format(time.RFC3339)),
			"sentiment":     tswriter.SanitizeObjectMeta(item.Sentiment),
			"has-content":   fmt.Sprintf("%t", hasContent),
		}
		if err := s.objects.Put(ctx, key, payload, meta); err != nil {
			return fmt.Errorf("upload article body: %w", err)
		}
		item.S3Path = key
	}

	return s.writer.WriteNews(ctx, item)
}

// objectKey builds the object-store key layout the spec requires:
// raw/news/<ticker>/<YYYY-MM-DD>/<id>.json.
func objectKey(item model.NewsItem) string {
	date := item.Time
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return fmt.Sprintf("raw/news/%s/%s/%s.json", item.Ticker, date.UTC().Format("2006-01-02"), item.ID)
}

func marshalBody(b articleBody) ([]byte, error) {
	return json.Marshal(b)
}

func (s *Store) fetchAndExtract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; WavePilotIngest/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching article", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, 5*1024*1024)
	html, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read article body: %w", err)
	}

	return readability.Extract(string(html)), nil
}
