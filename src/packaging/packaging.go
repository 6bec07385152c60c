// backend/src/packaging/packaging.go
package packaging

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/username/regfolio/backend/src/ixbrl"
)

var (
	ErrNoDocuments   = errors.New("no documents to package")
	ErrDuplicateName = errors.New("duplicate document name")
)

// Package wraps the generated documents in a zip container and returns it
// base64 encoded for embedding in a submission body. Entries keep the input
// order and all carry modTime, so the same documents always produce the same
// output bytes.
func Package(docs []ixbrl.Document, modTime time.Time) (string, error) {
	if len(docs) == 0 {
		return "", ErrNoDocuments
	}
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if seen[doc.Name] {
			return "", fmt.Errorf("%w: %s", ErrDuplicateName, doc.Name)
		}
		seen[doc.Name] = true
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, doc := range docs {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     doc.Name,
			Method:   zip.Deflate,
			Modified: modTime.UTC(),
		})
		if err != nil {
			return "", fmt.Errorf("packaging %s: %w", doc.Name, err)
		}
		if _, err := w.Write([]byte(doc.Content)); err != nil {
			return "", fmt.Errorf("packaging %s: %w", doc.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("closing package: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Unpackage decodes a packaged container back into its documents, in archive
// order. Titles are not stored in the container and come back empty.
func Unpackage(encoded string) ([]ixbrl.Document, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding package: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("opening package: %w", err)
	}

	docs := make([]ixbrl.Document, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		docs = append(docs, ixbrl.Document{Name: f.Name, Content: string(content)})
	}
	return docs, nil
}
