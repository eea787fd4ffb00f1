// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
)

var (
	ErrNoFile          = errors.New("no file provided")
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileNameTooLong = errors.New("file name is too long")
	ErrFileTypeBlocked = errors.New("executable files are not allowed")
	ErrFileNameMissing = errors.New("file has no name")
)

const maxFileNameSize = 255

// FileValidator checks an uploaded file against the size limit and the
// blocked-extension denylist and sniffs its real content type. Returns
// the open file positioned at the start together with the detected mime
// type.
func FileValidator(fh *multipart.FileHeader) (int, multipart.File, string, error) {
	if fh == nil || fh.Size == 0 {
		return http.StatusBadRequest, nil, "", ErrNoFile
	}

	if fh.Filename == "" {
		return http.StatusBadRequest, nil, "", ErrFileNameMissing
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, nil, "", ErrFileNameTooLong
	}

	// Denylist is a case-insensitive suffix match so Virus.EXE doesn't
	// slip through
	name := strings.ToLower(fh.Filename)
	for _, ext := range viper.GetStringSlice("upload.blocked_extensions") {
		if strings.HasSuffix(name, strings.ToLower(ext)) {
			return http.StatusBadRequest, nil, "", ErrFileTypeBlocked
		}
	}

	if fh.Size > viper.GetInt64("upload.max_size") {
		return http.StatusRequestEntityTooLarge, nil, "", ErrFileTooLarge
	}

	// The header content type is trivially spoofed, sniff the actual
	// bytes for the stored mime type
	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, "", err
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, "", err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, "", err
	}

	return 0, f, mime.String(), nil
}
