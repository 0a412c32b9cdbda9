package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type UploadResult struct {
	ObjectName string `json:"object_name"`
	PublicURL  string `json:"public_url"`
	Size       int64  `json:"size"`
}

// BlobStore is the object storage used for templates and draft fixture images.
type BlobStore interface {
	UploadFile(ctx context.Context, reader io.Reader, objectName, contentType string) (*UploadResult, error)
	ReadFile(ctx context.Context, objectName string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, objectName string) error
	Close() error
}

// URLSigner is implemented by stores that can hand out direct download links.
type URLSigner interface {
	GetSignedURL(objectName string, expiry time.Duration) (string, error)
}

// ReadAll reads a whole object into memory.
func ReadAll(ctx context.Context, store BlobStore, objectName string) ([]byte, error) {
	reader, err := store.ReadFile(ctx, objectName)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFilename reduces an uploaded filename to characters that are safe in object names and
// Content-Disposition headers.
func SafeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

func GenerateTemplateObjectName(filename string) string {
	timestamp := time.Now().Unix()
	return fmt.Sprintf("templates/%d_%s", timestamp, SafeFilename(filename))
}

// GenerateFixtureImageObjectName keys a draft image by quotation and fixture position.
func GenerateFixtureImageObjectName(quotationID string, fixtureIndex int, filename string) string {
	return fmt.Sprintf("quotations/%s/fixtures/%d/%s", quotationID, fixtureIndex, SafeFilename(filename))
}
