package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// maxNameLength bounds the sanitized file name part of a key.
const maxNameLength = 128

// ObjectKey builds the storage key <unix-millis>-<sanitized name> for an upload.
//
// Example:
//
//	name: "../My Report (final).pdf"
//	result: "1700000000000-My-Report-final-.pdf"
func ObjectKey(now time.Time, filename string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + SanitizeName(filename)
}

// SanitizeName reduces a client-supplied file name to [A-Za-z0-9._-].
// Directory components are dropped and runs of other characters collapse to one dash.
func SanitizeName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))

	var b strings.Builder
	dash := false
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
			dash = false
		default:
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	name := strings.TrimLeft(b.String(), ".")
	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}
	if name == "" || name == "-" {
		return "file"
	}
	return name
}

// ComputePath returns the filesystem location of ref under basePath.
// References that would escape basePath are rejected.
//
// Example:
//
//	ref: {Bucket: "products", Path: "1700000000000-a.zip"}
//	basePath: "/data"
//	result: "/data/products/1700000000000-a.zip"
func ComputePath(basePath string, ref domain.BlobRef) (string, error) {
	if err := ValidateRef(ref); err != nil {
		return "", err
	}
	return filepath.Join(basePath, ref.Bucket, filepath.FromSlash(ref.Path)), nil
}

// ValidateRef checks that ref names a catalog bucket and a relative, clean key.
func ValidateRef(ref domain.BlobRef) error {
	switch ref.Bucket {
	case domain.ProductBucket, domain.ImageBucket:
	default:
		return fmt.Errorf("unknown bucket %q", ref.Bucket)
	}

	if ref.Path == "" || strings.HasPrefix(ref.Path, "/") || strings.Contains(ref.Path, `\`) {
		return fmt.Errorf("invalid blob path %q", ref.Path)
	}
	if clean := path.Clean(ref.Path); clean != ref.Path || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid blob path %q", ref.Path)
	}
	return nil
}
