package validators

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)

	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	return req.MultipartForm.File["file"][0]
}

func setupUploadConfig(t *testing.T) {
	t.Helper()

	viper.Set("upload.max_size", int64(1<<20))
	viper.Set("upload.blocked_extensions", []string{
		".exe", ".bat", ".cmd", ".com", ".pif", ".scr", ".vbs", ".js",
	})
}

func TestFileValidatorAcceptsPlainFile(t *testing.T) {
	setupUploadConfig(t)

	fh := makeFileHeader(t, "notes.txt", []byte("hello world"))

	code, f, contentType, err := FileValidator(fh)
	require.NoError(t, err)
	defer f.Close()

	assert.Zero(t, code)
	assert.Contains(t, contentType, "text/plain")

	// The file must come back rewound so the caller can store it whole
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got)
}

func TestFileValidatorBlocksExecutables(t *testing.T) {
	setupUploadConfig(t)

	for _, name := range []string{"virus.exe", "Virus.EXE", "script.vbs", "run.BAT", "evil.js"} {
		fh := makeFileHeader(t, name, []byte("MZ fake payload"))

		code, f, _, err := FileValidator(fh)
		assert.ErrorIs(t, err, ErrFileTypeBlocked, name)
		assert.Equal(t, http.StatusBadRequest, code, name)
		assert.Nil(t, f, name)
	}
}

func TestFileValidatorSizeLimit(t *testing.T) {
	setupUploadConfig(t)
	viper.Set("upload.max_size", int64(16))

	fh := makeFileHeader(t, "big.bin", bytes.Repeat([]byte("a"), 64))

	code, f, _, err := FileValidator(fh)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Nil(t, f)
}

func TestFileValidatorNoFile(t *testing.T) {
	setupUploadConfig(t)

	code, _, _, err := FileValidator(nil)
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Equal(t, http.StatusBadRequest, code)

	fh := makeFileHeader(t, "empty.txt", nil)
	fh.Size = 0

	code, _, _, err = FileValidator(fh)
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Equal(t, http.StatusBadRequest, code)
}
