package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrObjectNotFound is returned by blob stores for missing objects.
var ErrObjectNotFound = errors.New("object not found")

// parseS3Location splits s3://bucket/key.
func parseS3Location(loc string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(loc, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %q", loc)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("incomplete s3 location: %q", loc)
	}
	return bucket, key, nil
}
