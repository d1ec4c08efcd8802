package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/AIComply/internal/domain/certificate"
)

func newTestCertificateCache(t *testing.T) (*CertificateCache, *miniredis.Miniredis, *[]bool) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var mu sync.Mutex
	var accesses []bool
	cache := NewCertificateCache(NewRedisCache(client, nil), time.Hour, func(hit bool) {
		mu.Lock()
		defer mu.Unlock()
		accesses = append(accesses, hit)
	})
	return cache, mr, &accesses
}

func testRecord(t *testing.T) *certificate.CertificateRecord {
	t.Helper()
	issued := time.Date(2025, 6, 2, 9, 30, 0, 123456000, time.UTC)
	rec := &certificate.CertificateRecord{
		ID:                "c1",
		CertificateNumber: "RA-2025-K3F9QZ21",
		OrganizationName:  "Acme GmbH",
		SystemName:        "Credit Scoring",
		CertificateType:   certificate.TypeRiskAssessment,
		ComplianceScore:   70,
		IssuedAt:          issued,
		ValidUntil:        issued.AddDate(1, 0, 0),
	}
	hash, err := certificate.ComputeHash(rec)
	require.NoError(t, err)
	rec.Certification.Hash = hash
	return rec
}

func TestCertificateCache_LoadThenHit(t *testing.T) {
	cache, mr, accesses := newTestCertificateCache(t)
	rec := testRecord(t)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) (*certificate.CertificateRecord, error) {
		loads.Add(1)
		return rec, nil
	}

	first, err := cache.GetOrLoad(ctx, rec.CertificateNumber, load)
	require.NoError(t, err)
	second, err := cache.GetOrLoad(ctx, rec.CertificateNumber, load)
	require.NoError(t, err)

	assert.EqualValues(t, 1, loads.Load())
	assert.Equal(t, []bool{false, true}, *accesses)
	assert.True(t, mr.Exists("aicomply:certificate:RA-2025-K3F9QZ21"))
	// the cached copy still verifies after the JSON round trip
	assert.True(t, certificate.Verify(first))
	assert.True(t, certificate.Verify(second))
	assert.True(t, second.IssuedAt.Equal(rec.IssuedAt))
}

func TestCertificateCache_PutThenRead(t *testing.T) {
	cache, _, _ := newTestCertificateCache(t)
	rec := testRecord(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, rec))
	got, err := cache.GetOrLoad(ctx, rec.CertificateNumber, func(context.Context) (*certificate.CertificateRecord, error) {
		t.Fatal("load must not be called after Put")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, rec.CertificateNumber, got.CertificateNumber)
}

func TestCertificateCache_ConcurrentMissesLoadOnce(t *testing.T) {
	cache, _, _ := newTestCertificateCache(t)
	rec := testRecord(t)

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (*certificate.CertificateRecord, error) {
		loads.Add(1)
		<-release
		return rec, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.GetOrLoad(context.Background(), rec.CertificateNumber, load)
			assert.NoError(t, err)
			assert.Equal(t, rec.CertificateNumber, got.CertificateNumber)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, loads.Load(), int32(2))
}

func TestCertificateCache_UnavailableFallsBackToLoad(t *testing.T) {
	cache, mr, _ := newTestCertificateCache(t)
	rec := testRecord(t)
	mr.Close()

	got, err := cache.GetOrLoad(context.Background(), rec.CertificateNumber, func(context.Context) (*certificate.CertificateRecord, error) {
		return rec, nil
	})
	require.NoError(t, err)
	assert.Equal(t, rec.CertificateNumber, got.CertificateNumber)
}
