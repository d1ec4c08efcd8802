package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/AIComply/internal/config"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/pkg/errors"
	"github.com/turtacn/AIComply/pkg/types/common"
)

var (
	ErrIndexCreationFailed = errors.New(errors.ErrCodeExternalService, "index creation failed")
	ErrDocumentIndexFailed = errors.New(errors.ErrCodeExternalService, "document index failed")
)

// IndexerConfig holds configuration for the RegistryIndexer.
type IndexerConfig struct {
	Index string
	// RefreshPolicy is passed through as the refresh parameter: "true",
	// "false" or "wait_for".
	RefreshPolicy string
}

// RegistryIndexer writes registry entries into the certificate index.
type RegistryIndexer struct {
	client *Client
	config IndexerConfig
	logger logging.Logger
}

// NewRegistryIndexer creates a RegistryIndexer.
func NewRegistryIndexer(client *Client, cfg IndexerConfig, logger logging.Logger) *RegistryIndexer {
	if cfg.Index == "" {
		cfg.Index = config.DefaultOpenSearchIndex
	}
	if cfg.RefreshPolicy == "" {
		cfg.RefreshPolicy = "false"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RegistryIndexer{client: client, config: cfg, logger: logger}
}

// registryDocument is the indexed form of a certificate. Document IDs are
// certificate numbers, so reindexing the same certificate overwrites it.
type registryDocument struct {
	certificate.RegistryEntry
	Year int `json:"year"`
}

// EnsureIndex creates the registry index with RegistryIndexMapping unless it
// already exists.
func (i *RegistryIndexer) EnsureIndex(ctx context.Context) error {
	exists, err := i.IndexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body, err := json.Marshal(RegistryIndexMapping())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}

	req := opensearchapi.IndicesCreateRequest{
		Index: i.config.Index,
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create index request")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		typ, reason := decodeError(resp.Body)
		// Another replica won the race.
		if typ == "resource_already_exists_exception" {
			return nil
		}
		return errors.Wrapf(ErrIndexCreationFailed, errors.ErrCodeExternalService,
			"opensearch error %d: %s %s", resp.StatusCode, typ, reason)
	}

	i.logger.Info("Index created", logging.String("index", i.config.Index))
	return nil
}

// IndexExists checks if the registry index exists.
func (i *RegistryIndexer) IndexExists(ctx context.Context) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{Index: []string{i.config.Index}}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "failed to check index existence")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	}
	return false, errors.Newf(errors.ErrCodeExternalService, "index existence check returned %d", resp.StatusCode)
}

// IndexCertificate upserts the public projection of rec.
func (i *RegistryIndexer) IndexCertificate(ctx context.Context, rec *certificate.CertificateRecord) error {
	if rec == nil || rec.CertificateNumber == "" {
		return errors.InvalidParam("certificate number is required for indexing")
	}

	doc := registryDocument{
		RegistryEntry: certificate.EntryFor(rec),
		Year:          rec.IssuedAt.UTC().Year(),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal registry document")
	}

	req := opensearchapi.IndexRequest{
		Index:      i.config.Index,
		DocumentID: rec.CertificateNumber,
		Body:       bytes.NewReader(body),
		Refresh:    i.config.RefreshPolicy,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to index certificate")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		typ, reason := decodeError(resp.Body)
		return errors.Wrapf(ErrDocumentIndexFailed, errors.ErrCodeExternalService,
			"opensearch error %d: %s %s", resp.StatusCode, typ, reason)
	}

	i.logger.Debug("certificate indexed",
		logging.String("index", i.config.Index),
		logging.String("certificate_number", rec.CertificateNumber),
	)
	return nil
}

func decodeError(r io.Reader) (typ, reason string) {
	var errResp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(r)
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error.Type != "" {
		return errResp.Error.Type, errResp.Error.Reason
	}
	return "unknown", strings.TrimSpace(string(raw))
}

// RegistryIndexMapping is the mapping of the certificate registry index.
// Organisation names are indexed both as keyword (exact filter) and text
// (free-text search).
func RegistryIndexMapping() common.IndexMapping {
	keyword := map[string]interface{}{"type": "keyword"}
	text := map[string]interface{}{
		"type":   "text",
		"fields": map[string]interface{}{"raw": keyword},
	}
	return common.IndexMapping{
		Settings: map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		Mappings: map[string]interface{}{
			"dynamic": "strict",
			"properties": map[string]interface{}{
				"certificate_number": keyword,
				"organization_name":  text,
				"system_name":        text,
				"certificate_type":   keyword,
				"compliance_score":   map[string]interface{}{"type": "integer"},
				"overall_status":     keyword,
				"risk_level":         keyword,
				"maturity_level":     keyword,
				"issued_at":          map[string]interface{}{"type": "date"},
				"valid_until":        map[string]interface{}{"type": "date"},
				"hash":               map[string]interface{}{"type": "keyword", "index": false},
				"year":               map[string]interface{}{"type": "integer"},
			},
		},
	}
}
