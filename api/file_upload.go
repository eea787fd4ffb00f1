package api

import (
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"filedrop/transfer-api/middleware"
	"filedrop/transfer-api/model"
	"filedrop/transfer-api/storage"
	"filedrop/transfer-api/validators"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// UploadInfo tells the frontend what the upload form may submit
func (a *API) UploadInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"max_size":           viper.GetInt64("upload.max_size"),
		"blocked_extensions": viper.GetStringSlice("upload.blocked_extensions"),
	})
}

// FileUpload accepts one file plus optional description and tags. The
// blob is written first, the record second, so a listed record always has
// its bytes on disk. If the record can't be saved the blob is removed
// again.
func (a *API) FileUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet(middleware.CtxUser).(*model.User)

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request",
			"requestID": requestID,
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to parse multipart form", zap.Error(err))
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	fh := files[0]

	code, f, contentType, err := validators.FileValidator(fh)
	if err != nil {
		if code == http.StatusInternalServerError {
			zap.L().Error("Failed to validate file", zap.Error(err))

			// That's to set the error into a general one for the users
			err = errors.New("internal server error")
		}

		c.AbortWithStatusJSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}
	defer f.Close()

	key, err := gonanoid.Generate(idAlphabet, 16)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate storage key", zap.Error(err))
		return
	}

	now := time.Now()
	blobPath := storage.DatePath(key+path.Ext(fh.Filename), now)

	if err := a.Blobs.Write(c.Request.Context(), blobPath, f, fh.Size, contentType); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Upload failed, please try again",
			"requestID": requestID,
		})

		zap.L().Error("Failed to write blob", zap.Error(err), zap.String("path", blobPath))
		return
	}

	record := model.File{
		UserID:       user.ID,
		StoredPath:   blobPath,
		OriginalName: fh.Filename,
		Size:         fh.Size,
		FileType:     contentType,
		Status:       model.StatusPending,
		Description:  c.PostForm("description"),
		Tags:         c.PostForm("tags"),
		UploadedAt:   now.Unix(),
	}

	if err := a.DB.Create(&record).Error; err != nil {
		// No record may point at nothing and no blob may float around
		// unreferenced, roll the blob back
		if delErr := a.Blobs.Delete(c.Request.Context(), blobPath); delErr != nil {
			zap.L().Error("Failed to clean up blob after record create failure", zap.Error(delErr))
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Upload failed, please try again",
			"requestID": requestID,
		})

		zap.L().Error("Failed to save file record to db", zap.Error(err))
		return
	}

	zap.L().Info("File uploaded",
		zap.String("userID", user.ID),
		zap.Uint("fileID", record.ID),
		zap.String("name", fh.Filename),
		zap.Int64("size", fh.Size),
	)

	c.JSON(http.StatusOK, record)
}
