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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/turtacn/ReactEA/internal/testutil"
	apperrors "github.com/turtacn/ReactEA/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockMinIOAPI) SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error {
	return m.Called(ctx, bucketName, config).Error(0)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return m.Called(ctx, bucketName, opts).Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinIOAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	// Drain the reader so tests observe what a real upload would send.
	data, _ := io.ReadAll(reader)
	args := m.Called(ctx, bucketName, objectName, string(data), objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

type ClientTestSuite struct {
	suite.Suite
	api *MockMinIOAPI
	ctx context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := &MinIOConfig{Prefix: "runs"}
	applyDefaults(cfg)

	s.Equal("us-east-1", cfg.Region)
	s.Equal("reactea-runs", cfg.Bucket)
	s.Equal(int64(16*1024*1024), cfg.PartSize)
	s.Equal(time.Hour, cfg.PresignExpiry)
	s.Equal("runs/", cfg.Prefix)
}

func (s *ClientTestSuite) TestNew_CreatesMissingBucket() {
	s.api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{}, nil)
	s.api.On("BucketExists", mock.Anything, "artifacts").Return(false, nil)
	s.api.On("MakeBucket", mock.Anything, "artifacts", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	c, err := newMinIOClient(s.ctx, s.api, &MinIOConfig{Endpoint: "localhost:9000", Bucket: "artifacts"}, testutil.NewMockLogger())
	s.Require().NoError(err)
	s.Equal("artifacts", c.Bucket())
	s.api.AssertExpectations(s.T())
	s.api.AssertNotCalled(s.T(), "SetBucketLifecycle", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestNew_InstallsRetentionRule() {
	s.api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{}, nil)
	s.api.On("BucketExists", mock.Anything, "artifacts").Return(true, nil)
	s.api.On("SetBucketLifecycle", mock.Anything, "artifacts", mock.MatchedBy(func(c *lifecycle.Configuration) bool {
		return len(c.Rules) == 1 && c.Rules[0].Expiration.Days == 30 && c.Rules[0].RuleFilter.Prefix == "runs/"
	})).Return(errors.New("not supported"))

	log := testutil.NewMockLogger()
	_, err := newMinIOClient(s.ctx, s.api, &MinIOConfig{Bucket: "artifacts", Prefix: "runs", RetentionDays: 30}, log)
	s.Require().NoError(err)
	s.True(log.HasMessage("warn", "failed to set bucket lifecycle"))
}

func (s *ClientTestSuite) TestNew_Unreachable() {
	s.api.On("ListBuckets", mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := newMinIOClient(s.ctx, s.api, &MinIOConfig{}, nil)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))
}

func (s *ClientTestSuite) TestObjectKey() {
	c := &MinIOClient{config: &MinIOConfig{Prefix: "runs/"}}
	s.Equal("runs/abc/final_population.tsv", c.ObjectKey("abc", "final_population.tsv"))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{}, nil)
	s.api.On("BucketExists", mock.Anything, "b").Return(false, nil)
	c := &MinIOClient{client: s.api, config: &MinIOConfig{Bucket: "b"}}

	status, err := c.HealthCheck(s.ctx)
	s.Require().NoError(err)
	s.False(status.Healthy)
	s.Contains(status.Error, "bucket b missing")
}

func (s *ClientTestSuite) TestPresignedGetURL() {
	u, _ := url.Parse("http://localhost:9000/b/k?sig=1")
	s.api.On("PresignedGetObject", mock.Anything, "b", "k", time.Hour, url.Values(nil)).Return(u, nil)
	c := &MinIOClient{client: s.api, config: &MinIOConfig{Bucket: "b", PresignExpiry: time.Hour}}

	got, err := c.PresignedGetURL(s.ctx, "k", 0)
	s.Require().NoError(err)
	s.Equal(u.String(), got)
}

func (s *ClientTestSuite) TestClosed() {
	c := &MinIOClient{client: s.api, config: &MinIOConfig{Bucket: "b"}}
	require.NoError(s.T(), c.Close())
	s.Nil(c.GetClient())
	_, err := c.PresignedGetURL(s.ctx, "k", 0)
	s.ErrorIs(err, ErrMinIOClientClosed)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestNewMinIOClient_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOClient(context.Background(), &MinIOConfig{}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}
