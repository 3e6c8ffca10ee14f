// Package objectstore publishes dataset artifacts as objects in an
// S3-compatible bucket. The precondition token is the object's ETag and
// replacements are conditional PUTs (If-Match).
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pokecompanion/namesync/pkg/constants"
	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/logging"
	"github.com/pokecompanion/namesync/pkg/sources"
)

const serviceName = "s3"

// Config configures a Store.
type Config struct {
	Endpoint  string // host[:port] or URL
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Prefix    string // optional key prefix
}

// objectAPI is the subset of bucket operations the store needs.
type objectAPI interface {
	get(ctx context.Context, bucket, key string) ([]byte, error)
	stat(ctx context.Context, bucket, key string) (string, error)
	put(ctx context.Context, bucket, key string, content []byte, matchETag string) (minio.UploadInfo, error)
}

// Store is an S3 ArtifactFetcher and ArtifactPublisher.
type Store struct {
	api      objectAPI
	bucket   string
	prefix   string
	maxBytes int64
}

// New creates a store backed by a minio client.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.NewConfigError("objectstore", "bucket is required", nil)
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}
	if endpoint == "" {
		return nil, errors.NewConfigError("objectstore", "endpoint is required", nil)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewConfigError("objectstore", "failed to create minio client", err)
	}

	return newStore(&minioAPI{client: client}, cfg.Bucket, cfg.Prefix), nil
}

func newStore(api objectAPI, bucket, prefix string) *Store {
	return &Store{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/"), maxBytes: constants.MaxArtifactBytes}
}

// ID returns the backend id.
func (s *Store) ID() sources.ID {
	return sources.S3ID
}

// FetchArtifact reads and decodes the object at ref.Path. Branch is ignored.
func (s *Store) FetchArtifact(ctx context.Context, ref sources.Ref) ([]dataset.Record, error) {
	key := s.key(ref.Path)
	body, err := s.api.get(ctx, s.bucket, key)
	if err != nil {
		return nil, classify(err, key)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, errors.NewValidationError("artifact", key,
			fmt.Sprintf("object exceeds the %d byte limit", s.maxBytes))
	}

	var records []dataset.Record
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, errors.WrapParse("json", key, err)
	}
	return records, nil
}

// Token returns the object's ETag, or "" when it does not exist.
func (s *Store) Token(ctx context.Context, ref sources.Ref) (string, error) {
	key := s.key(ref.Path)
	etag, err := s.api.stat(ctx, s.bucket, key)
	if err != nil {
		err = classify(err, key)
		if errors.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return etag, nil
}

// Replace writes the object only if its ETag still equals req.Token.
// Branch is ignored.
func (s *Store) Replace(ctx context.Context, req sources.ReplaceRequest) (*sources.Commit, error) {
	key := s.key(req.Path)
	info, err := s.api.put(ctx, s.bucket, key, req.Content, req.Token)
	if err != nil {
		err = classify(err, key)
		if errors.IsPreconditionFailed(err) {
			return nil, errors.NewPublishPreconditionError(req.Path, req.Token, err)
		}
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Str("etag", info.ETag).
		Msg("Uploaded artifact")

	sha := info.VersionID
	if sha == "" {
		sha = info.ETag
	}
	return &sources.Commit{SHA: sha, Token: info.ETag, URL: "s3://" + s.bucket + "/" + key}, nil
}

func (s *Store) key(p string) string {
	p = strings.TrimLeft(p, "/")
	if s.prefix == "" {
		return p
	}
	return path.Join(s.prefix, p)
}

// classify maps minio error responses onto the error taxonomy.
func classify(err error, key string) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket":
		return &errors.NotFoundError{Resource: "object", ID: key}
	case resp.Code == "PreconditionFailed" || resp.StatusCode == http.StatusPreconditionFailed:
		return &errors.APIError{Service: serviceName, StatusCode: http.StatusPreconditionFailed, Message: resp.Message, Endpoint: key, Err: err}
	case resp.StatusCode != 0:
		return &errors.APIError{Service: serviceName, StatusCode: resp.StatusCode, Message: resp.Message, Endpoint: key, Err: err}
	default:
		return errors.WrapResource("access", "object", key, err)
	}
}

// minioAPI adapts a minio client to objectAPI.
type minioAPI struct {
	client *minio.Client
}

func (m *minioAPI) get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = obj.Close() }()
	// One byte past the limit lets FetchArtifact tell a full read from a cut one.
	return io.ReadAll(io.LimitReader(obj, constants.MaxArtifactBytes+1))
}

func (m *minioAPI) stat(ctx context.Context, bucket, key string) (string, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return "", err
	}
	return info.ETag, nil
}

func (m *minioAPI) put(ctx context.Context, bucket, key string, content []byte, matchETag string) (minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if matchETag != "" {
		opts.SetMatchETag(matchETag)
	}
	return m.client.PutObject(ctx, bucket, key, bytes.NewReader(content), int64(len(content)), opts)
}
