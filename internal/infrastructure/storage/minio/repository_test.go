package minio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/turtacn/ReactEA/internal/testutil"
	apperrors "github.com/turtacn/ReactEA/pkg/errors"
)

type RepositoryTestSuite struct {
	suite.Suite
	api  *MockMinIOAPI
	repo ArtifactRepository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	client := &MinIOClient{
		client: s.api,
		config: &MinIOConfig{Bucket: "runs", Prefix: "reactea/", PartSize: 5 * 1024 * 1024},
	}
	s.repo = NewArtifactRepository(client, testutil.NewMockLogger())
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) writeFile(dir, name, content string) {
	path := filepath.Join(dir, name)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
}

func (s *RepositoryTestSuite) TestUploadRunFolder() {
	dir := s.T().TempDir()
	s.writeFile(dir, "final_population.tsv", "id\tsmiles\n")
	s.writeFile(dir, "config.yaml", "ea: {}\n")
	s.writeFile(dir, "nested/notes.txt", "hello")

	tsvOpts := func(o minio.PutObjectOptions) bool {
		return o.ContentType == "text/tab-separated-values" && o.UserTags["run_id"] == "run-1"
	}
	s.api.On("PutObject", mock.Anything, "runs", "reactea/run-1/final_population.tsv", "id\tsmiles\n", int64(10), mock.MatchedBy(tsvOpts)).
		Return(minio.UploadInfo{ETag: "e1", Size: 10}, nil)
	s.api.On("PutObject", mock.Anything, "runs", "reactea/run-1/config.yaml", "ea: {}\n", int64(7), mock.MatchedBy(func(o minio.PutObjectOptions) bool {
		return o.ContentType == "application/yaml"
	})).Return(minio.UploadInfo{ETag: "e2", Size: 7}, nil)
	s.api.On("PutObject", mock.Anything, "runs", "reactea/run-1/nested/notes.txt", "hello", int64(5), mock.MatchedBy(func(o minio.PutObjectOptions) bool {
		return o.ContentType == "text/plain; charset=utf-8"
	})).Return(minio.UploadInfo{ETag: "e3", Size: 5}, nil)

	results, err := s.repo.UploadRunFolder(s.ctx, "run-1", dir)
	s.Require().NoError(err)
	s.Len(results, 3)
	// WalkDir visits in lexical order.
	s.Equal("reactea/run-1/config.yaml", results[0].ObjectKey)
	s.Equal("runs", results[0].Bucket)
	s.api.AssertExpectations(s.T())
}

func (s *RepositoryTestSuite) TestUploadRunFolder_StopsOnFailure() {
	dir := s.T().TempDir()
	s.writeFile(dir, "a.tsv", "x")
	s.writeFile(dir, "b.tsv", "y")
	s.api.On("PutObject", mock.Anything, "runs", "reactea/r/a.tsv", "x", int64(1), mock.Anything).
		Return(minio.UploadInfo{}, errors.New("access denied"))

	results, err := s.repo.UploadRunFolder(s.ctx, "r", dir)
	s.Error(err)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeStorage))
	s.Empty(results)
	s.api.AssertNumberOfCalls(s.T(), "PutObject", 1)
}

func (s *RepositoryTestSuite) TestUploadRunFolder_Invalid() {
	_, err := s.repo.UploadRunFolder(s.ctx, "", "dir")
	s.ErrorIs(err, ErrInvalidRequest)

	_, err = s.repo.UploadRunFolder(s.ctx, "r", filepath.Join(s.T().TempDir(), "missing"))
	s.True(apperrors.IsCode(err, apperrors.ErrCodeIOFailure))
}

func (s *RepositoryTestSuite) TestExists() {
	s.api.On("StatObject", mock.Anything, "runs", "present", minio.StatObjectOptions{}).Return(minio.ObjectInfo{Key: "present"}, nil)
	s.api.On("StatObject", mock.Anything, "runs", "absent", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})

	ok, err := s.repo.Exists(s.ctx, "present")
	s.NoError(err)
	s.True(ok)

	ok, err = s.repo.Exists(s.ctx, "absent")
	s.NoError(err)
	s.False(ok)
}

func (s *RepositoryTestSuite) TestList() {
	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "reactea/r/a.tsv", Size: 1}
	ch <- minio.ObjectInfo{Key: "reactea/r/b.tsv", Size: 2}
	close(ch)
	s.api.On("ListObjects", mock.Anything, "runs", minio.ListObjectsOptions{Prefix: "reactea/r/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch))

	objs, err := s.repo.List(s.ctx, "reactea/r/")
	s.Require().NoError(err)
	s.Len(objs, 2)
	s.Equal(int64(2), objs[1].Size)
}

func (s *RepositoryTestSuite) TestDelete() {
	s.api.On("RemoveObject", mock.Anything, "runs", "k", minio.RemoveObjectOptions{}).Return(nil)
	s.NoError(s.repo.Delete(s.ctx, "k"))
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
