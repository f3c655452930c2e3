package storage

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// S3Store keeps persistent objects in an S3-compatible bucket. Offset reads
// and writes operate on a whole-object copy held by the handle, with writes
// pushed back read-modify-write; the objects this module relays are a few
// kilobytes of variable storage, so whole-object transfers are fine.
type S3Store struct {
	client *s3.S3
	bucket string
	prefix string
	log    *slog.Logger
}

var _ interfaces.ObjectStore = (*S3Store)(nil)

// NewS3Store creates an S3-backed object store. accessKey and secretKey may
// be empty when the environment or instance profile provides credentials.
func NewS3Store(bucket, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Store, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		client: s3.New(sess),
		bucket: bucket,
		prefix: prefix,
		log:    log,
	}, nil
}

// Resolve implements interfaces.ObjectStore.
func (s *S3Store) Resolve(name string) (interfaces.ObjectRef, error) {
	if name == "" {
		return nil, interfaces.ErrBadParameters
	}

	return &s3Ref{
		store: s,
		key:   path.Join(s.prefix, hex.EncodeToString([]byte(name))),
	}, nil
}

type s3Ref struct {
	store *S3Store
	key   string
}

func (r *s3Ref) fetch() ([]byte, error) {
	out, err := r.store.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(r.store.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, interfaces.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to fetch object from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	return data, nil
}

func (r *s3Ref) put(data []byte) error {
	_, err := r.store.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(r.store.bucket),
		Key:    aws.String(r.key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to store object in S3: %w", err)
	}
	return nil
}

// Open implements interfaces.ObjectRef.
func (r *s3Ref) Open() (interfaces.ObjectHandle, error) {
	data, err := r.fetch()
	if err != nil {
		return nil, err
	}
	return &s3Handle{ref: r, data: data}, nil
}

// Create implements interfaces.ObjectRef.
func (r *s3Ref) Create() (interfaces.ObjectHandle, error) {
	data, err := r.fetch()
	if err == interfaces.ErrObjectNotFound {
		if err := r.put(nil); err != nil {
			return nil, err
		}
		r.store.log.Debug("created object", slog.String("key", r.key))
		return &s3Handle{ref: r}, nil
	}
	if err != nil {
		return nil, err
	}

	return &s3Handle{ref: r, data: data}, nil
}

// Remove implements interfaces.ObjectRef.
func (r *s3Ref) Remove() error {
	_, err := r.store.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(r.store.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

// Release implements interfaces.ObjectRef.
func (r *s3Ref) Release() {}

type s3Handle struct {
	ref  *s3Ref
	data []byte
}

// ReadAt implements interfaces.ObjectHandle.
func (h *s3Handle) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, interfaces.ErrBadParameters
	}
	if off >= int64(len(h.data)) {
		return 0, nil
	}
	return copy(p, h.data[off:]), nil
}

// WriteAt implements interfaces.ObjectHandle.
func (h *s3Handle) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, interfaces.ErrBadParameters
	}

	if need := off + int64(len(p)); need > int64(len(h.data)) {
		h.data = append(h.data, make([]byte, need-int64(len(h.data)))...)
	}
	copy(h.data[off:], p)

	if err := h.ref.put(h.data); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Close implements interfaces.ObjectHandle.
func (h *s3Handle) Close() error { return nil }
