package api

import (
	"errors"
	"net/http"

	"filedrop/transfer-api/middleware"
	"filedrop/transfer-api/model"
	"filedrop/transfer-api/policy"
	"filedrop/transfer-api/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileDeleteConfirm returns the record so the frontend can render a
// delete confirmation
func (a *API) FileDeleteConfirm(c *gin.Context) {
	file := c.MustGet(middleware.CtxFileRecord).(*model.File)

	c.JSON(http.StatusOK, file)
}

// FileDelete removes the blob and then the record. A blob that already
// vanished externally doesn't block the delete, the dangling record is
// removed anyway. A record is never left pointing at a missing blob on
// the success path.
func (a *API) FileDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet(middleware.CtxUser).(*model.User)
	file := c.MustGet(middleware.CtxFileRecord).(*model.File)

	if !policy.CanDelete(user, file) {
		zap.L().Warn("File delete denied",
			zap.String("userID", user.ID),
			zap.Uint("fileID", file.ID),
			zap.String("outcome", "permission denied"),
		)

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You don't have permission to delete this file",
			"requestID": requestID,
		})
		return
	}

	// Blob goes first. If this fails the record stays and the operation
	// reports failure, nothing half-deleted.
	err := a.Blobs.Delete(c.Request.Context(), file.StoredPath)
	if err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Delete failed, please try again",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete blob", zap.Error(err), zap.String("path", file.StoredPath))
		return
	}

	if errors.Is(err, storage.ErrBlobNotFound) {
		zap.L().Warn("Deleting record with missing blob",
			zap.Uint("fileID", file.ID),
			zap.String("path", file.StoredPath),
		)
	}

	if err := a.DB.Delete(model.File{}, file.ID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Delete failed, please try again",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete file record", zap.Error(err), zap.Uint("fileID", file.ID))
		return
	}

	zap.L().Info("File deleted",
		zap.String("userID", user.ID),
		zap.Uint("fileID", file.ID),
		zap.String("name", file.OriginalName),
	)

	c.JSON(http.StatusOK, gin.H{
		"message": "File deleted",
	})
}
