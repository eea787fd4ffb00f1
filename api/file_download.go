package api

import (
	"fmt"
	"net/http"

	"filedrop/transfer-api/middleware"
	"filedrop/transfer-api/model"
	"filedrop/transfer-api/policy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileDownload streams the blob back with the record's stored mime type
// and the original filename as the attachment name. A record whose blob
// went missing is a 404, not a crash.
func (a *API) FileDownload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet(middleware.CtxUser).(*model.User)
	file := c.MustGet(middleware.CtxFileRecord).(*model.File)

	if !policy.CanDownload(c.Request.Context(), user, file, a.Blobs) {
		// Access itself was already granted by the gate, so the blob is
		// what's missing here
		zap.L().Warn("Download of file without blob",
			zap.String("userID", user.ID),
			zap.Uint("fileID", file.ID),
			zap.String("outcome", "blob missing"),
		)

		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "File content is no longer available",
			"requestID": requestID,
		})
		return
	}

	rc, err := a.Blobs.Open(c.Request.Context(), file.StoredPath)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "File content is no longer available",
			"requestID": requestID,
		})

		zap.L().Error("Failed to open blob", zap.Error(err), zap.String("path", file.StoredPath))
		return
	}
	defer rc.Close()

	c.DataFromReader(
		http.StatusOK,
		file.Size,
		file.FileType,
		rc,
		map[string]string{
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.OriginalName),
		},
	)
}
