package minio

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/AIComply/internal/config"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/AIComply/pkg/errors"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockObjectAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockObjectAPI) EnableVersioning(ctx context.Context, bucketName string) error {
	return m.Called(ctx, bucketName).Error(0)
}

func (m *MockObjectAPI) SetBucketLifecycle(ctx context.Context, bucketName string, cfg *lifecycle.Configuration) error {
	return m.Called(ctx, bucketName, cfg).Error(0)
}

func (m *MockObjectAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockObjectAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockObjectAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

type ClientTestSuite struct {
	suite.Suite
	api    *MockObjectAPI
	client *Client
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockObjectAPI)
	s.client = newClientWithAPI(s.api, &Config{Bucket: "certs"}, logging.NewNopLogger())
}

func (s *ClientTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := &Config{}
	applyDefaults(cfg)

	s.Equal("us-east-1", cfg.Region)
	s.Equal(config.DefaultMinIOBucket, cfg.Bucket)
	s.Equal(time.Hour, cfg.PresignExpiry)
}

func (s *ClientTestSuite) TestFromMinIOConfig() {
	cfg := FromMinIOConfig(config.MinIOConfig{Endpoint: "minio:9000", AccessKey: "ak", SecretKey: "sk", Bucket: "b", UseSSL: true})
	s.Equal("minio:9000", cfg.Endpoint)
	s.Equal("ak", cfg.AccessKey)
	s.True(cfg.UseSSL)
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", mock.Anything, "certs").Return(false, nil)
	s.api.On("MakeBucket", mock.Anything, "certs", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)
	s.api.On("EnableVersioning", mock.Anything, "certs").Return(nil)

	s.NoError(s.client.EnsureBucket(context.Background()))
}

func (s *ClientTestSuite) TestEnsureBucket_ExistingWithLifecycle() {
	s.client.config.ArchiveExpiryDays = 3650
	s.api.On("BucketExists", mock.Anything, "certs").Return(true, nil)
	s.api.On("EnableVersioning", mock.Anything, "certs").Return(errors.New("not supported"))
	s.api.On("SetBucketLifecycle", mock.Anything, "certs", mock.MatchedBy(func(c *lifecycle.Configuration) bool {
		return len(c.Rules) == 1 && c.Rules[0].Expiration.Days == 3650
	})).Return(nil)

	s.NoError(s.client.EnsureBucket(context.Background()), "versioning failure is only logged")
}

func (s *ClientTestSuite) TestEnsureBucket_CheckFails() {
	s.api.On("BucketExists", mock.Anything, "certs").Return(false, errors.New("dial tcp: refused"))

	err := s.client.EnsureBucket(context.Background())
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeServiceUnavailable))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{{Name: "certs"}}, nil)
	s.api.On("BucketExists", mock.Anything, "certs").Return(true, nil).Once()
	s.NoError(s.client.HealthCheck(context.Background()))

	s.api.On("BucketExists", mock.Anything, "certs").Return(false, nil).Once()
	s.Error(s.client.HealthCheck(context.Background()))
}

func (s *ClientTestSuite) TestPresignedURL_DefaultExpiry() {
	u, _ := url.Parse("https://minio.local/certs/certificates/acme/2025/CF-2025-AAAA0000.json?X-Amz-Signature=abc")
	s.api.On("PresignedGetObject", mock.Anything, "certs", "certificates/acme/2025/CF-2025-AAAA0000.json", time.Hour, url.Values(nil)).
		Return(u, nil)

	got, err := s.client.PresignedURL(context.Background(), "certificates/acme/2025/CF-2025-AAAA0000.json", 0)
	s.NoError(err)
	s.Contains(got, "X-Amz-Signature")
}

func (s *ClientTestSuite) TestClosed() {
	s.NoError(s.client.Close())
	s.ErrorIs(s.client.HealthCheck(context.Background()), ErrClientClosed)
	_, err := s.client.PresignedURL(context.Background(), "k", time.Minute)
	s.ErrorIs(err, ErrClientClosed)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
