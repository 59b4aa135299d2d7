package upload_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedock/sitedock"
	"github.com/sitedock/sitedock/upload"
)

type formField struct {
	name     string
	value    string
	filename string
}

func buildForm(t *testing.T, fields []formField) *multipart.Reader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if f.filename != "" {
			fw, err := w.CreateFormFile(f.name, f.filename)
			require.NoError(t, err)
			_, err = io.WriteString(fw, f.value)
			require.NoError(t, err)
		} else {
			require.NoError(t, w.WriteField(f.name, f.value))
		}
	}
	require.NoError(t, w.Close())

	return multipart.NewReader(&buf, w.Boundary())
}

func TestReadForm_Success(t *testing.T) {
	id := uuid.New()
	mr := buildForm(t, []formField{
		{name: "uuid", value: id.String()},
		{name: "siteName", value: "blog"},
		{name: "site", value: "archive bytes", filename: "site.tar.gz"},
	})

	res, err := upload.ReadForm(context.Background(), mr, t.TempDir())
	assert.NoError(t, err)
	assert.Equal(t, id, res.SiteID)
	assert.Equal(t, "blog", res.SiteName)
	assert.Equal(t, "site.tar.gz", res.Filename)
	assert.Equal(t, int64(len("archive bytes")), res.Size)
	assert.True(t, strings.HasSuffix(res.ArchivePath, "site.tar.gz"))

	data, err := os.ReadFile(res.ArchivePath)
	assert.NoError(t, err)
	assert.Equal(t, []byte("archive bytes"), data)
}

func TestReadForm_FieldsInAnyOrder(t *testing.T) {
	id := uuid.New()
	mr := buildForm(t, []formField{
		{name: "site", value: "archive bytes", filename: "site.zip"},
		{name: "siteName", value: "docs"},
		{name: "uuid", value: id.String()},
	})

	res, err := upload.ReadForm(context.Background(), mr, t.TempDir())
	assert.NoError(t, err)
	assert.Equal(t, id, res.SiteID)
	assert.Equal(t, "docs", res.SiteName)
}

func TestReadForm_UnknownFieldsIgnored(t *testing.T) {
	mr := buildForm(t, []formField{
		{name: "uuid", value: uuid.New().String()},
		{name: "extra", value: "ignored"},
		{name: "siteName", value: "blog"},
		{name: "site", value: "x", filename: "s.tgz"},
	})

	_, err := upload.ReadForm(context.Background(), mr, t.TempDir())
	assert.NoError(t, err)
}

func TestReadForm_MissingFields(t *testing.T) {
	cases := []struct {
		name   string
		fields []formField
	}{
		{"missing uuid", []formField{
			{name: "siteName", value: "blog"},
			{name: "site", value: "x", filename: "s.tar.gz"},
		}},
		{"missing siteName", []formField{
			{name: "uuid", value: uuid.New().String()},
			{name: "site", value: "x", filename: "s.tar.gz"},
		}},
		{"missing site", []formField{
			{name: "uuid", value: uuid.New().String()},
			{name: "siteName", value: "blog"},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mr := buildForm(t, tc.fields)
			_, err := upload.ReadForm(context.Background(), mr, t.TempDir())
			assert.ErrorIs(t, err, sitedock.ErrMissingField)
		})
	}
}

func TestReadForm_MissingField_RemovesTempFile(t *testing.T) {
	tmpDir := t.TempDir()
	mr := buildForm(t, []formField{
		{name: "siteName", value: "blog"},
		{name: "site", value: "x", filename: "s.tar.gz"},
	})

	_, err := upload.ReadForm(context.Background(), mr, tmpDir)
	assert.ErrorIs(t, err, sitedock.ErrMissingField)

	entries, err := os.ReadDir(tmpDir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadForm_InvalidUUID(t *testing.T) {
	mr := buildForm(t, []formField{
		{name: "uuid", value: "not-a-uuid"},
		{name: "siteName", value: "blog"},
		{name: "site", value: "x", filename: "s.tar.gz"},
	})

	_, err := upload.ReadForm(context.Background(), mr, t.TempDir())
	assert.ErrorIs(t, err, sitedock.ErrInvalidInput)
}

func TestReadForm_InvalidSiteName(t *testing.T) {
	mr := buildForm(t, []formField{
		{name: "uuid", value: uuid.New().String()},
		{name: "siteName", value: "my blog!"},
		{name: "site", value: "x", filename: "s.tar.gz"},
	})

	_, err := upload.ReadForm(context.Background(), mr, t.TempDir())
	assert.ErrorIs(t, err, sitedock.ErrInvalidName)
}

func TestReadForm_DuplicateSiteField(t *testing.T) {
	tmpDir := t.TempDir()
	mr := buildForm(t, []formField{
		{name: "uuid", value: uuid.New().String()},
		{name: "siteName", value: "blog"},
		{name: "site", value: "x", filename: "a.tar.gz"},
		{name: "site", value: "y", filename: "b.tar.gz"},
	})

	_, err := upload.ReadForm(context.Background(), mr, tmpDir)
	assert.ErrorIs(t, err, sitedock.ErrInvalidInput)

	entries, err := os.ReadDir(tmpDir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadForm_ContextCanceled(t *testing.T) {
	mr := buildForm(t, []formField{
		{name: "uuid", value: uuid.New().String()},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := upload.ReadForm(ctx, mr, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
