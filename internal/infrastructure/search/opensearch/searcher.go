package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/AIComply/internal/config"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/pkg/errors"
)

// SearcherConfig holds configuration for the RegistrySearcher.
type SearcherConfig struct {
	Index           string
	DefaultPageSize int
	MaxPageSize     int
	SearchTimeout   time.Duration
}

// RegistrySearcher answers registry queries from the certificate index.
type RegistrySearcher struct {
	client *Client
	config SearcherConfig
	logger logging.Logger
}

// NewRegistrySearcher creates a RegistrySearcher.
func NewRegistrySearcher(client *Client, cfg SearcherConfig, logger logging.Logger) *RegistrySearcher {
	if cfg.Index == "" {
		cfg.Index = config.DefaultOpenSearchIndex
	}
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RegistrySearcher{client: client, config: cfg, logger: logger}
}

// Search returns one page of registry entries, newest first.
func (s *RegistrySearcher) Search(ctx context.Context, q certificate.RegistryQuery) (*certificate.RegistryPage, error) {
	if q.Limit <= 0 {
		q.Limit = s.config.DefaultPageSize
	}
	if q.Limit > s.config.MaxPageSize {
		q.Limit = s.config.MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	body, err := json.Marshal(s.buildQueryDSL(q))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal query DSL")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.SearchTimeout)
	defer cancel()

	req := opensearchapi.SearchRequest{
		Index:          []string{s.config.Index},
		Body:           bytes.NewReader(body),
		TrackTotalHits: true,
	}

	start := time.Now()
	resp, err := req.Do(ctx, s.client.GetClient())
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New(errors.ErrCodeTimeout, "registry search timed out")
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "registry search failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		// Nothing has been issued yet.
		return &certificate.RegistryPage{Entries: []certificate.RegistryEntry{}}, nil
	}
	if resp.IsError() {
		typ, reason := decodeError(resp.Body)
		return nil, errors.Newf(errors.ErrCodeExternalService, "opensearch error %d: %s %s", resp.StatusCode, typ, reason)
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source certificate.RegistryEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}

	page := &certificate.RegistryPage{
		Entries: make([]certificate.RegistryEntry, 0, len(parsed.Hits.Hits)),
		Total:   parsed.Hits.Total.Value,
	}
	for _, h := range parsed.Hits.Hits {
		page.Entries = append(page.Entries, h.Source)
	}

	s.logger.Debug("registry search executed",
		logging.String("index", s.config.Index),
		logging.Duration("took", time.Since(start)),
		logging.Int64("total", page.Total),
	)
	return page, nil
}

func (s *RegistrySearcher) buildQueryDSL(q certificate.RegistryQuery) map[string]interface{} {
	var filters []interface{}
	if q.OrganizationName != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"organization_name.raw": q.OrganizationName},
		})
	}
	if q.Status != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"overall_status": string(q.Status)},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if q.Text != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  q.Text,
					"fields": []string{"organization_name^2", "system_name", "certificate_number"},
				},
			},
		}
	}

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(boolQuery) > 0 {
		query = map[string]interface{}{"bool": boolQuery}
	}

	return map[string]interface{}{
		"query": query,
		"from":  q.Offset,
		"size":  q.Limit,
		"sort": []interface{}{
			map[string]interface{}{"issued_at": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"certificate_number": map[string]interface{}{"order": "asc"}},
		},
	}
}
