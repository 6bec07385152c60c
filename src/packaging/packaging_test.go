package packaging

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/regfolio/backend/src/ixbrl"
)

var stamp = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

func sampleDocs() []ixbrl.Document {
	return []ixbrl.Document{
		{Name: "12345678-accounts-2024-12-31.html", Content: "<html>accounts</html>"},
		{Name: "12345678-notes-2024-12-31.html", Content: "<html>notes</html>"},
	}
}

func TestPackage_Deterministic(t *testing.T) {
	first, err := Package(sampleDocs(), stamp)
	require.NoError(t, err)
	second, err := Package(sampleDocs(), stamp)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPackage_RoundTripKeepsOrder(t *testing.T) {
	// deliberately not sorted by name
	docs := []ixbrl.Document{
		{Name: "z-second.html", Content: "second"},
		{Name: "a-first.html", Content: "first"},
	}
	encoded, err := Package(docs, stamp)
	require.NoError(t, err)

	out, err := Unpackage(encoded)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "z-second.html", out[0].Name)
	assert.Equal(t, "second", out[0].Content)
	assert.Equal(t, "a-first.html", out[1].Name)
	assert.Equal(t, "first", out[1].Content)
}

func TestPackage_EntriesCarryFixedTimestamp(t *testing.T) {
	encoded, err := Package(sampleDocs(), stamp)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	for _, f := range zr.File {
		assert.Equal(t, stamp.Unix(), f.Modified.Unix(), "entry %s", f.Name)
	}
}

func TestPackage_RejectsEmptyAndDuplicates(t *testing.T) {
	_, err := Package(nil, stamp)
	assert.ErrorIs(t, err, ErrNoDocuments)

	dup := []ixbrl.Document{
		{Name: "same.html", Content: "a"},
		{Name: "same.html", Content: "b"},
	}
	_, err = Package(dup, stamp)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestUnpackage_RejectsGarbage(t *testing.T) {
	_, err := Unpackage("not base64!!")
	assert.Error(t, err)

	// valid base64, not a zip
	_, err = Unpackage(base64.StdEncoding.EncodeToString([]byte("plain text")))
	assert.Error(t, err)
}
