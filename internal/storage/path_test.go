package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "archive.zip", "archive.zip"},
		{"spaces and parens", "My Report (final).pdf", "My-Report-final-.pdf"},
		{"traversal", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\me\photo.png`, "photo.png"},
		{"hidden file", ".env", "env"},
		{"empty", "", "file"},
		{"only symbols", "***", "file"},
		{"unicode", "résumé.txt", "r-sum-.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123-a-b.zip", ObjectKey(now, "a b.zip"))
}

func TestComputePath(t *testing.T) {
	got, err := ComputePath("/data", domain.BlobRef{Bucket: domain.ProductBucket, Path: "1-a.zip"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "products", "1-a.zip"), got)
}

func TestValidateRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     domain.BlobRef
		wantErr bool
	}{
		{"product", domain.BlobRef{Bucket: domain.ProductBucket, Path: "1-a.zip"}, false},
		{"image", domain.BlobRef{Bucket: domain.ImageBucket, Path: "1-a.png"}, false},
		{"nested", domain.BlobRef{Bucket: domain.ProductBucket, Path: "legacy/1-a.zip"}, false},
		{"unknown bucket", domain.BlobRef{Bucket: "secrets", Path: "a"}, true},
		{"empty path", domain.BlobRef{Bucket: domain.ProductBucket}, true},
		{"absolute", domain.BlobRef{Bucket: domain.ProductBucket, Path: "/etc/passwd"}, true},
		{"parent", domain.BlobRef{Bucket: domain.ProductBucket, Path: "../users.db"}, true},
		{"inner parent", domain.BlobRef{Bucket: domain.ProductBucket, Path: "a/../../b"}, true},
		{"backslash", domain.BlobRef{Bucket: domain.ProductBucket, Path: `..\b`}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRef(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
