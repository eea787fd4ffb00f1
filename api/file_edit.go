package api

import (
	"net/http"
	"slices"
	"time"

	"filedrop/transfer-api/middleware"
	"filedrop/transfer-api/model"
	"filedrop/transfer-api/policy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type editBody struct {
	Description *string `json:"description"`
	Tags        *string `json:"tags"`
	Status      *string `json:"status"`
}

// FileEdit updates description, tags or status of a file. The owner never
// changes, there is no transfer of ownership. Moving a file to completed
// stamps completed_at.
func (a *API) FileEdit(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet(middleware.CtxUser).(*model.User)
	file := c.MustGet(middleware.CtxFileRecord).(*model.File)

	if !policy.CanModify(user, file) {
		zap.L().Warn("File edit denied",
			zap.String("userID", user.ID),
			zap.Uint("fileID", file.ID),
			zap.String("outcome", "permission denied"),
		)

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You don't have permission to modify this file",
			"requestID": requestID,
		})
		return
	}

	var data editBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	updates := map[string]any{}

	if data.Description != nil {
		updates["description"] = *data.Description
	}

	if data.Tags != nil {
		updates["tags"] = *data.Tags
	}

	if data.Status != nil {
		if !slices.Contains(model.ValidStatuses, *data.Status) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid status",
				"requestID": requestID,
			})
			return
		}

		updates["status"] = *data.Status

		if *data.Status == model.StatusCompleted && file.CompletedAt == nil {
			updates["completed_at"] = time.Now().Unix()
		}
	}

	if len(updates) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Nothing to update",
			"requestID": requestID,
		})
		return
	}

	err := a.DB.
		Model(model.File{}).
		Where("id = ?", file.ID).
		Updates(updates).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update file record", zap.Error(err), zap.Uint("fileID", file.ID))
		return
	}

	var updated model.File
	if err := a.DB.First(&updated, file.ID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to reload file record", zap.Error(err), zap.Uint("fileID", file.ID))
		return
	}

	c.JSON(http.StatusOK, updated)
}
