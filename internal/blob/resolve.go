package blob

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/freeeve/cdict/internal/cderr"
)

// Config holds object-store connection settings.
type Config struct {
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOSecure    bool
	MinIORegion    string
}

// Location is a parsed dictionary location.
type Location struct {
	Scheme string // "s3", "minio" or "" for local paths
	Bucket string // object-store bucket
	Path   string // object key or local path
}

// IsLocal reports whether l refers to the local filesystem.
func (l Location) IsLocal() bool { return l.Scheme == "" }

func (l Location) String() string {
	if l.IsLocal() {
		return l.Path
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Path
}

// ParseLocation parses s3://bucket/key, minio://bucket/key or a local path.
func ParseLocation(uri string) (Location, error) {
	if uri == "" {
		return Location{}, cderr.InvalidArg("location", "empty")
	}
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return Location{Path: uri}, nil
	}
	switch scheme {
	case "s3", "minio":
	default:
		return Location{}, cderr.InvalidArg("location", "unsupported scheme %q in %s", scheme, uri)
	}
	u, err := url.Parse(scheme + "://" + rest)
	if err != nil {
		return Location{}, cderr.InvalidArg("location", "%v", err)
	}
	if u.Host == "" {
		return Location{}, cderr.InvalidArg("location", "missing bucket in %s", uri)
	}
	return Location{Scheme: scheme, Bucket: u.Host, Path: strings.Trim(u.Path, "/")}, nil
}

// Base returns the last element of the location path.
func (l Location) Base() string {
	if l.IsLocal() {
		return filepath.Base(l.Path)
	}
	if i := strings.LastIndexByte(l.Path, '/'); i >= 0 {
		return l.Path[i+1:]
	}
	return l.Path
}

// Resolve returns the bucket holding the object at uri and its name within
// that bucket.
func Resolve(ctx context.Context, uri string, cfg Config) (Bucket, string, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, "", err
	}
	if loc.IsLocal() {
		return NewLocal(filepath.Dir(loc.Path)), filepath.Base(loc.Path), nil
	}
	if loc.Path == "" {
		return nil, "", cderr.InvalidArg("location", "missing object key in %s", uri)
	}
	dir, name := "", loc.Path
	if i := strings.LastIndexByte(loc.Path, '/'); i >= 0 {
		dir, name = loc.Path[:i], loc.Path[i+1:]
	}
	b, err := remote(ctx, loc.Scheme, loc.Bucket, dir, cfg)
	if err != nil {
		return nil, "", err
	}
	return b, name, nil
}

// ResolveDir returns a bucket rooted at the folder or prefix uri.
func ResolveDir(ctx context.Context, uri string, cfg Config) (Bucket, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, err
	}
	if loc.IsLocal() {
		return NewLocal(loc.Path), nil
	}
	return remote(ctx, loc.Scheme, loc.Bucket, loc.Path, cfg)
}

func remote(ctx context.Context, scheme, bucket, prefix string, cfg Config) (Bucket, error) {
	switch scheme {
	case "s3":
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3(client, bucket, prefix), nil
	default:
		client, err := NewMinIOClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewMinIO(client, bucket, prefix), nil
	}
}
