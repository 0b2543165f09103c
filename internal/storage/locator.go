// Package storage resolves dataset locations to local files and writes the
// split partitions.
package storage

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Scheme identifies where a dataset lives.
type Scheme string

const (
	SchemeS3   Scheme = "s3"
	SchemeFile Scheme = "file"
)

// Locator is a parsed dataset location.
type Locator struct {
	Scheme Scheme
	// Bucket and Key are set for s3 locations.
	Bucket string
	Key    string
	// Path is set for local locations.
	Path string
	raw  string
}

// ParseLocator accepts s3://bucket/key, file:///path and plain local paths.
func ParseLocator(raw string) (Locator, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Locator{}, fmt.Errorf("input location cannot be empty")
	}

	if !strings.Contains(trimmed, "://") {
		return Locator{Scheme: SchemeFile, Path: filepath.Clean(trimmed), raw: raw}, nil
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Locator{}, fmt.Errorf("invalid input location %q: %w", raw, err)
	}

	switch Scheme(strings.ToLower(u.Scheme)) {
	case SchemeS3:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
			return Locator{}, fmt.Errorf("invalid s3 location %q: expected s3://bucket/key", raw)
		}
		return Locator{Scheme: SchemeS3, Bucket: u.Host, Key: key, raw: raw}, nil
	case SchemeFile:
		if u.Path == "" {
			return Locator{}, fmt.Errorf("invalid file location %q: missing path", raw)
		}
		return Locator{Scheme: SchemeFile, Path: filepath.Clean(u.Path), raw: raw}, nil
	default:
		return Locator{}, fmt.Errorf("unsupported scheme %q in %q (valid: s3, file)", u.Scheme, raw)
	}
}

// Remote reports whether the location has to be downloaded.
func (l Locator) Remote() bool {
	return l.Scheme == SchemeS3
}

// BaseName is the file name the dataset gets when fetched.
func (l Locator) BaseName() string {
	if l.Scheme == SchemeS3 {
		return path.Base(l.Key)
	}
	return filepath.Base(l.Path)
}

func (l Locator) String() string {
	switch l.Scheme {
	case SchemeS3:
		return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
	default:
		if l.raw != "" {
			return l.raw
		}
		return l.Path
	}
}
