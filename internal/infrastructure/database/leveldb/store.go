// Package leveldb is the embedded store behind the offline CLI. It implements
// both assessment.Repository and certificate.Repository on a single goleveldb
// database, storing records as JSON under prefixed keys.
package leveldb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	goleveldb "github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/pkg/errors"
)

// Key layout:
//
//	system/<id>                          AISystem JSON
//	idx/system/<user>/<created>/<id>     empty, orders a user's systems (user path-escaped)
//	risk/<id>                            RiskAssessment JSON
//	maturity/<id>                        MaturityAssessment JSON
//	cert/<number>                        CertificateRecord JSON
//	idx/cert/<org>/<issued>/<number>     empty, orders an organisation's certificates
const (
	prefixSystem      = "system/"
	prefixSystemIndex = "idx/system/"
	prefixRisk        = "risk/"
	prefixMaturity    = "maturity/"
	prefixCert        = "cert/"
	prefixCertIndex   = "idx/cert/"
)

// sortableTime is fixed-width so lexical key order matches time order.
const sortableTime = "20060102T150405.000000000Z"

// Store is a goleveldb-backed repository.
type Store struct {
	db     *goleveldb.DB
	logger logging.Logger
	// mu serialises read-modify-write sequences; goleveldb only guarantees
	// atomicity of single batches.
	mu sync.Mutex
}

var (
	_ assessment.Repository  = (*Store)(nil)
	_ certificate.Repository = (*Store)(nil)
)

// Open opens or creates the database at path.
func Open(path string, log logging.Logger) (*Store, error) {
	db, err := goleveldb.OpenFile(path, &opt.Options{BlockCacheCapacity: 8 * opt.MiB})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDatabaseError, "failed to open store at %s", path)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	log.Info("embedded store opened", logging.String("path", path))
	return &Store{db: db, logger: log}, nil
}

// OpenMemory returns a store that lives only in memory.
func OpenMemory(log logging.Logger) (*Store, error) {
	db, err := goleveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open in-memory store")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{db: db, logger: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// AI systems
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateAISystem(_ context.Context, sys *assessment.AISystem) error {
	if sys == nil {
		return errors.InvalidParam("ai system cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(prefixSystem + sys.ID)
	exists, err := s.db.Has(key, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check ai system")
	}
	if exists {
		return errors.Newf(errors.ErrCodeConflict, "ai system %s already exists", sys.ID)
	}

	data, err := json.Marshal(sys)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode ai system")
	}
	batch := new(goleveldb.Batch)
	batch.Put(key, data)
	batch.Put(systemIndexKey(sys), nil)
	if err := s.db.Write(batch, nil); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to store ai system")
	}
	return nil
}

func (s *Store) GetAISystem(_ context.Context, id string) (*assessment.AISystem, error) {
	var sys assessment.AISystem
	if err := s.getJSON(prefixSystem+id, &sys); err != nil {
		if err == goleveldb.ErrNotFound {
			return nil, errors.Newf(errors.ErrCodeAISystemNotFound, "ai system %s not found", id)
		}
		return nil, err
	}
	return &sys, nil
}

func (s *Store) ListAISystems(ctx context.Context, userID string, limit, offset int) ([]*assessment.AISystem, error) {
	ids, err := s.scanIndexDesc(prefixSystemIndex+url.PathEscape(userID)+"/", limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*assessment.AISystem, 0, len(ids))
	for _, id := range ids {
		sys, err := s.GetAISystem(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sys)
	}
	return out, nil
}

func (s *Store) UpdateAISystemScore(ctx context.Context, id string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sys, err := s.GetAISystem(ctx, id)
	if err != nil {
		return err
	}
	v := assessment.ClampScore(score)
	sys.ComplianceScore = &v
	return s.putJSON(prefixSystem+id, sys)
}

func systemIndexKey(sys *assessment.AISystem) []byte {
	return []byte(fmt.Sprintf("%s%s/%s/%s", prefixSystemIndex, url.PathEscape(sys.UserID), sys.CreatedAt.UTC().Format(sortableTime), sys.ID))
}

// ─────────────────────────────────────────────────────────────────────────────
// Assessments
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateRiskAssessment(ctx context.Context, a *assessment.RiskAssessment) error {
	if a == nil || a.Result == nil {
		return errors.InvalidParam("risk assessment result cannot be nil")
	}
	if a.SystemID != "" {
		if _, err := s.GetAISystem(ctx, a.SystemID); err != nil {
			return err
		}
	}
	return s.putJSON(prefixRisk+a.ID, a)
}

func (s *Store) GetRiskAssessment(_ context.Context, id string) (*assessment.RiskAssessment, error) {
	var a assessment.RiskAssessment
	if err := s.getJSON(prefixRisk+id, &a); err != nil {
		if err == goleveldb.ErrNotFound {
			return nil, errors.Newf(errors.ErrCodeAssessmentNotFound, "risk assessment %s not found", id)
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateMaturityAssessment(_ context.Context, a *assessment.MaturityAssessment) error {
	if a == nil || a.Result == nil {
		return errors.InvalidParam("maturity assessment result cannot be nil")
	}
	return s.putJSON(prefixMaturity+a.ID, a)
}

func (s *Store) GetMaturityAssessment(_ context.Context, id string) (*assessment.MaturityAssessment, error) {
	var a assessment.MaturityAssessment
	if err := s.getJSON(prefixMaturity+id, &a); err != nil {
		if err == goleveldb.ErrNotFound {
			return nil, errors.Newf(errors.ErrCodeAssessmentNotFound, "maturity assessment %s not found", id)
		}
		return nil, err
	}
	return &a, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Certificates
// ─────────────────────────────────────────────────────────────────────────────

// Create writes rec and its organisation index entry in one transaction. An
// existing certificate number is reported as ErrCodeSerialCollision.
func (s *Store) Create(_ context.Context, rec *certificate.CertificateRecord) error {
	if rec == nil {
		return errors.InvalidParam("certificate cannot be nil")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode certificate")
	}

	tr, err := s.db.OpenTransaction()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open transaction")
	}
	key := []byte(prefixCert + rec.CertificateNumber)
	exists, err := tr.Has(key, nil)
	if err != nil {
		tr.Discard()
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check certificate number")
	}
	if exists {
		tr.Discard()
		return errors.Newf(errors.ErrCodeSerialCollision, "certificate number %s already issued", rec.CertificateNumber)
	}

	batch := new(goleveldb.Batch)
	batch.Put(key, data)
	batch.Put(certIndexKey(rec), nil)
	if err := tr.Write(batch, nil); err != nil {
		tr.Discard()
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to store certificate")
	}
	if err := tr.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit certificate")
	}

	s.logger.Debug("certificate stored", logging.String("certificate_number", rec.CertificateNumber))
	return nil
}

func (s *Store) GetByNumber(_ context.Context, number string) (*certificate.CertificateRecord, error) {
	var rec certificate.CertificateRecord
	if err := s.getJSON(prefixCert+number, &rec); err != nil {
		if err == goleveldb.ErrNotFound {
			return nil, errors.Newf(errors.ErrCodeCertificateNotFound, "certificate %s not found", number)
		}
		return nil, err
	}
	return &rec, nil
}

// ListByOrganization walks the organisation's index newest first. Without a
// status filter the index alone pages and counts; with one every record is
// loaded so the total counts matches rather than index entries.
func (s *Store) ListByOrganization(ctx context.Context, organizationName string, status certificate.OverallStatus, limit, offset int) ([]*certificate.CertificateRecord, int64, error) {
	prefix := prefixCertIndex + url.PathEscape(organizationName) + "/"
	if status == "" {
		numbers, err := s.scanIndexDesc(prefix, limit, offset)
		if err != nil {
			return nil, 0, err
		}
		total, err := s.countIndex(prefix)
		if err != nil {
			return nil, 0, err
		}
		out := make([]*certificate.CertificateRecord, 0, len(numbers))
		for _, n := range numbers {
			rec, err := s.GetByNumber(ctx, n)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, rec)
		}
		return out, total, nil
	}

	limit, offset = clampIndexPage(limit, offset)
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	out := make([]*certificate.CertificateRecord, 0, limit)
	var total int64
	for ok := iter.Last(); ok; ok = iter.Prev() {
		rec, err := s.GetByNumber(ctx, lastSegment(string(iter.Key())))
		if err != nil {
			return nil, 0, err
		}
		if rec.ComplianceDetails.OverallStatus != status {
			continue
		}
		if total >= int64(offset) && len(out) < limit {
			out = append(out, rec)
		}
		total++
	}
	if err := iter.Error(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan index")
	}
	return out, total, nil
}

func (s *Store) countIndex(prefix string) (int64, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	var n int64
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count index")
	}
	return n, nil
}

func certIndexKey(rec *certificate.CertificateRecord) []byte {
	return []byte(fmt.Sprintf("%s%s/%s/%s", prefixCertIndex, url.PathEscape(rec.OrganizationName), rec.IssuedAt.UTC().Format(sortableTime), rec.CertificateNumber))
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

// getJSON returns goleveldb.ErrNotFound unchanged so callers can map it to
// their own not-found code.
func (s *Store) getJSON(key string, dest interface{}) error {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if err == goleveldb.ErrNotFound {
			return err
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read store")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrapf(err, errors.ErrCodeSerialization, "failed to decode %s", key)
	}
	return nil
}

func (s *Store) putJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode record")
	}
	if err := s.db.Put([]byte(key), data, nil); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to write store")
	}
	return nil
}

// scanIndexDesc walks an index prefix newest first and returns the trailing
// id segment of each key.
func clampIndexPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Store) scanIndexDesc(prefix string, limit, offset int) ([]string, error) {
	limit, offset = clampIndexPage(limit, offset)

	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var ids []string
	skipped := 0
	for ok := iter.Last(); ok && len(ids) < limit; ok = iter.Prev() {
		if skipped < offset {
			skipped++
			continue
		}
		ids = append(ids, lastSegment(string(iter.Key())))
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan index")
	}
	return ids, nil
}

func lastSegment(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}
