package minio

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrUploadFailed   = errors.New(errors.ErrCodeStorage, "upload failed")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")
)

// ArtifactRepository stores run outputs.
type ArtifactRepository interface {
	// UploadRunFolder copies every regular file under dir to
	// <prefix><runID>/<relative path>.
	UploadRunFolder(ctx context.Context, runID, dir string) ([]*UploadResult, error)
	UploadFile(ctx context.Context, objectKey, path string, tags map[string]string) (*UploadResult, error)
	Exists(ctx context.Context, objectKey string) (bool, error)
	List(ctx context.Context, prefix string) ([]*ObjectMetadata, error)
	Delete(ctx context.Context, objectKey string) error
}

type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	UploadedAt time.Time
}

type ObjectMetadata struct {
	ObjectKey    string
	Size         int64
	ETag         string
	LastModified time.Time
}

type minioRepository struct {
	client *MinIOClient
	logger logging.Logger
}

// NewArtifactRepository binds a repository to the client's bucket.
func NewArtifactRepository(client *MinIOClient, log logging.Logger) ArtifactRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &minioRepository{client: client, logger: log.Named("artifacts")}
}

func (r *minioRepository) UploadRunFolder(ctx context.Context, runID, dir string) ([]*UploadResult, error) {
	if runID == "" || dir == "" {
		return nil, ErrInvalidRequest
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIOFailure, "failed to walk run folder "+dir)
	}
	sort.Strings(files)

	tags := map[string]string{"run_id": runID}
	results := make([]*UploadResult, 0, len(files))
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return results, errors.Wrap(err, errors.ErrCodeIOFailure, "failed to resolve "+path)
		}
		res, err := r.UploadFile(ctx, r.client.ObjectKey(runID, filepath.ToSlash(rel)), path, tags)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}

	r.logger.Info("run folder uploaded",
		logging.String("run_id", runID),
		logging.String("bucket", r.client.Bucket()),
		logging.Int("objects", len(results)))
	return results, nil
}

func (r *minioRepository) UploadFile(ctx context.Context, objectKey, path string, tags map[string]string) (*UploadResult, error) {
	if objectKey == "" || path == "" {
		return nil, ErrInvalidRequest
	}
	api := r.client.GetClient()
	if api == nil {
		return nil, ErrMinIOClientClosed
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIOFailure, "failed to open "+path)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIOFailure, "failed to stat "+path)
	}

	contentType, err := detectContentType(f, path)
	if err != nil {
		return nil, err
	}

	opts := minio.PutObjectOptions{
		ContentType: contentType,
		UserTags:    tags,
		PartSize:    uint64(r.client.config.PartSize),
	}
	up, err := api.PutObject(ctx, r.client.Bucket(), objectKey, f, info.Size(), opts)
	if err != nil {
		return nil, ErrUploadFailed.WithCause(err).WithDetail(objectKey)
	}
	r.logger.Debug("object uploaded", logging.String("key", objectKey), logging.Int64("size", up.Size))
	return &UploadResult{
		Bucket:     r.client.Bucket(),
		ObjectKey:  objectKey,
		ETag:       up.ETag,
		Size:       up.Size,
		UploadedAt: time.Now(),
	}, nil
}

// detectContentType knows the run folder formats and sniffs the rest. f is
// rewound afterwards.
func detectContentType(f *os.File, path string) (string, error) {
	switch filepath.Ext(path) {
	case ".tsv":
		return "text/tab-separated-values", nil
	case ".yaml", ".yml":
		return "application/yaml", nil
	case ".json":
		return "application/json", nil
	}
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, errors.ErrCodeIOFailure, "failed to read "+path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeIOFailure, "failed to rewind "+path)
	}
	return http.DetectContentType(head[:n]), nil
}

func (r *minioRepository) Exists(ctx context.Context, objectKey string) (bool, error) {
	api := r.client.GetClient()
	if api == nil {
		return false, ErrMinIOClientClosed
	}
	_, err := api.StatObject(ctx, r.client.Bucket(), objectKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorage, "failed to stat "+objectKey)
	}
	return true, nil
}

func (r *minioRepository) List(ctx context.Context, prefix string) ([]*ObjectMetadata, error) {
	api := r.client.GetClient()
	if api == nil {
		return nil, ErrMinIOClientClosed
	}
	var objects []*ObjectMetadata
	for obj := range api.ListObjects(ctx, r.client.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorage, "failed to list "+prefix)
		}
		objects = append(objects, &ObjectMetadata{
			ObjectKey:    obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return objects, nil
}

func (r *minioRepository) Delete(ctx context.Context, objectKey string) error {
	api := r.client.GetClient()
	if api == nil {
		return ErrMinIOClientClosed
	}
	if err := api.RemoveObject(ctx, r.client.Bucket(), objectKey, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to delete "+objectKey)
	}
	return nil
}
