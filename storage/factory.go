package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// FromLocation creates an object store from a location URI.
// The URI format is [scheme]://[auth@]host[/path][?params].
//
// Supported schemes:
//   - file:// - local file system storage with integrity trailers
//   - mem:    - in-memory storage, nothing persisted
//   - s3://   - Amazon S3 or compatible object storage
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func FromLocation(locationURI string, log *slog.Logger) (interfaces.ObjectStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid storage location URI: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return NewFileStore(u.Path, log)
	case "mem":
		return NewMemoryStore(), nil
	case "s3":
		return createS3Store(u, log)
	default:
		return nil, fmt.Errorf("unsupported storage scheme: %s", u.Scheme)
	}
}

func createS3Store(u *url.URL, log *slog.Logger) (interfaces.ObjectStore, error) {
	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("missing S3 bucket name in URI")
	}

	q := u.Query()
	region := q.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Store(bucket, strings.TrimPrefix(u.Path, "/"), region, q.Get("endpoint"), accessKey, secretKey, log)
}
