package redis

import (
	"context"
	"time"

	"github.com/turtacn/AIComply/internal/domain/certificate"
)

// AccessObserver is told whether each certificate read was a hit.
type AccessObserver func(hit bool)

// CertificateCache caches certificate records by number. Certificates are
// immutable once issued, so entries are never invalidated, only expired.
type CertificateCache struct {
	cache    Cache
	ttl      time.Duration
	observer AccessObserver
}

// NewCertificateCache stores entries for ttl; zero selects the cache default.
func NewCertificateCache(cache Cache, ttl time.Duration, observer AccessObserver) *CertificateCache {
	if observer == nil {
		observer = func(bool) {}
	}
	return &CertificateCache{cache: cache, ttl: ttl, observer: observer}
}

func certificateKey(number string) string {
	return "certificate:" + number
}

func (c *CertificateCache) GetOrLoad(ctx context.Context, number string, load func(ctx context.Context) (*certificate.CertificateRecord, error)) (*certificate.CertificateRecord, error) {
	hit := true
	var rec certificate.CertificateRecord
	err := c.cache.GetOrLoad(ctx, certificateKey(number), &rec, c.ttl, func(ctx context.Context) (interface{}, error) {
		hit = false
		return load(ctx)
	})
	c.observer(hit)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *CertificateCache) Put(ctx context.Context, rec *certificate.CertificateRecord) error {
	return c.cache.Set(ctx, certificateKey(rec.CertificateNumber), rec, c.ttl)
}
