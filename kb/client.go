package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"procurement-backend/models"
)

const searchPath = "/api/knowledge/collection/search_knowledge"

var ErrSearchFailed = errors.New("knowledge base search failed")

// DocFilter restricts a search to (or away from) specific documents.
// Op is "must" or "must_not".
type DocFilter struct {
	Op    string   `json:"op"`
	Field string   `json:"field"`
	Conds []string `json:"conds"`
}

// SearchOptions tunes one search call.
type SearchOptions struct {
	Limit     int
	DocFilter *DocFilter
	// ExcludeDocIDs drops matching documents client-side after the
	// response is parsed. Useful alongside a must_not filter as the
	// filter support varies between collection versions.
	ExcludeDocIDs []string
	Adapter       PointAdapter
}

// Config holds the client settings.
type Config struct {
	Host         string
	AK           string
	SK           string
	CollectionID string

	RerankSwitch  bool
	RerankModel   string
	DenseWeight   float64
	RetrieveCount int
}

// Client searches the Viking knowledge base collection.
type Client struct {
	cfg    Config
	signer signer
	http   *http.Client
}

// NewClient builds a search client. Reads can take a while when reranking
// is enabled, so the response timeout is generous.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		signer: signer{ak: cfg.AK, sk: cfg.SK},
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 60 * time.Second,
				}).DialContext,
			},
		},
	}
}

// Search runs one query against the collection and returns normalized
// chunks.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]models.Chunk, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	postProcessing := map[string]interface{}{
		"rerank_switch":       c.cfg.RerankSwitch,
		"rerank_model":        c.cfg.RerankModel,
		"rerank_only_chunk":   false,
		"chunk_group":         true,
		"get_attachment_link": true,
	}
	if c.cfg.RetrieveCount > 0 {
		postProcessing["retrieve_count"] = c.cfg.RetrieveCount
	}

	body := map[string]interface{}{
		"resource_id":     c.cfg.CollectionID,
		"query":           query,
		"limit":           limit,
		"dense_weight":    c.cfg.DenseWeight,
		"post_processing": postProcessing,
	}
	if opts.DocFilter != nil {
		body["query_param"] = map[string]interface{}{
			"doc_filter": opts.DocFilter,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://"+c.cfg.Host+searchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.signer.sign(req, payload)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[KB] search returned status %d: %s", resp.StatusCode, truncate(string(raw), 300))
		return nil, fmt.Errorf("%w: status %d", ErrSearchFailed, resp.StatusCode)
	}

	points, err := decodePoints(raw)
	if err != nil {
		return nil, err
	}

	chunks := NormalizePoints(points, NormalizeOptions{
		ExcludeDocIDs: opts.ExcludeDocIDs,
		Adapter:       opts.Adapter,
	})
	log.Printf("[KB] query %q returned %d points, %d chunks after normalization", truncate(query, 60), len(points), len(chunks))
	return chunks, nil
}

// decodePoints parses the response body, tolerating both GBK-encoded
// payloads and the several envelope shapes the API has used.
func decodePoints(raw []byte) ([]map[string]interface{}, error) {
	raw = ensureUTF8(raw)

	var envelope map[string]interface{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Some deployments return the result list bare.
		var list []map[string]interface{}
		if err2 := json.Unmarshal(raw, &list); err2 == nil {
			return list, nil
		}
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	if data, ok := envelope["data"].(map[string]interface{}); ok {
		if points := pointsAt(data, "result_list", "points", "chunks", "results"); points != nil {
			return points, nil
		}
	}
	if points := pointsAt(envelope, "result_list", "points", "data", "chunks", "results"); points != nil {
		return points, nil
	}
	return nil, nil
}

func pointsAt(m map[string]interface{}, keys ...string) []map[string]interface{} {
	for _, key := range keys {
		list, ok := m[key].([]interface{})
		if !ok {
			continue
		}
		points := make([]map[string]interface{}, 0, len(list))
		for _, item := range list {
			if pm, ok := item.(map[string]interface{}); ok {
				points = append(points, pm)
			}
		}
		return points
	}
	return nil
}

// ensureUTF8 decodes GBK payloads to UTF-8 and strips any residual invalid
// bytes. Older collection exports occasionally come back GBK-encoded.
func ensureUTF8(raw []byte) []byte {
	if utf8.Valid(raw) {
		return raw
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err == nil && utf8.Valid(decoded) {
		return decoded
	}
	return bytes.ToValidUTF8(raw, []byte("�"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
