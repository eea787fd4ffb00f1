package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"filedrop/transfer-api/middleware"
	"filedrop/transfer-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Fixed page size for the history listing
const historyPageSize = 20

// FileHistory lists the caller's uploads, newest first, with optional
// substring search across name, description and tags plus status and
// type filters. Superusers see everyone's files.
func (a *API) FileHistory(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet(middleware.CtxUser).(*model.User)

	pageStr := c.DefaultQuery("page", "1")
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Page is not a valid positive integer",
			"requestID": requestID,
		})
		return
	}

	status := c.Query("status")
	if status != "" && !slices.Contains(model.ValidStatuses, status) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid status filter",
			"requestID": requestID,
		})
		return
	}

	q := a.DB.Model(model.File{})

	if !user.IsSuperuser {
		q = q.Where("user_id = ?", user.ID)
	}

	if search := strings.ToLower(c.Query("search")); search != "" {
		like := "%" + search + "%"
		q = q.Where(
			"LOWER(original_name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?",
			like, like, like,
		)
	}

	if status != "" {
		q = q.Where("status = ?", status)
	}

	if fileType := strings.ToLower(c.Query("file_type")); fileType != "" {
		q = q.Where("LOWER(file_type) LIKE ?", "%"+fileType+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to count history entries", zap.Error(err))
		return
	}

	var files []model.File

	err = q.
		Order("uploaded_at desc").
		Offset((page - 1) * historyPageSize).
		Limit(historyPageSize).
		Find(&files).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to lookup user files", zap.Error(err))
		return
	}

	totalPages := int((total + historyPageSize - 1) / historyPageSize)

	c.JSON(http.StatusOK, gin.H{
		"files":       files,
		"page":        page,
		"page_size":   historyPageSize,
		"total":       total,
		"total_pages": totalPages,
	})
}
