package api

import (
	"net/http"

	"filedrop/transfer-api/middleware"
	"filedrop/transfer-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type typeCount struct {
	FileType string `json:"file_type"`
	Count    int64  `json:"count"`
}

// Dashboard returns the landing page stats: file and byte totals, counts
// per status, the five most recent uploads and the most common file
// types. Scoped to the caller unless they are a superuser.
func (a *API) Dashboard(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet(middleware.CtxUser).(*model.User)

	scoped := func() *gorm.DB {
		q := a.DB.Model(model.File{})
		if !user.IsSuperuser {
			q = q.Where("user_id = ?", user.ID)
		}

		return q
	}

	var totalFiles int64
	if err := scoped().Count(&totalFiles).Error; err != nil {
		a.dashboardError(c, requestID, err)
		return
	}

	var totalSize int64
	err := scoped().
		Select("COALESCE(SUM(size), 0)").
		Scan(&totalSize).
		Error
	if err != nil {
		a.dashboardError(c, requestID, err)
		return
	}

	statusCounts := map[string]int64{}
	for _, status := range model.ValidStatuses {
		var n int64
		if err := scoped().Where("status = ?", status).Count(&n).Error; err != nil {
			a.dashboardError(c, requestID, err)
			return
		}

		statusCounts[status] = n
	}

	var recent []model.File
	err = scoped().
		Order("uploaded_at desc").
		Limit(5).
		Find(&recent).
		Error
	if err != nil {
		a.dashboardError(c, requestID, err)
		return
	}

	var topTypes []typeCount
	err = scoped().
		Select("file_type, COUNT(id) AS count").
		Group("file_type").
		Order("count desc").
		Limit(10).
		Scan(&topTypes).
		Error
	if err != nil {
		a.dashboardError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":      user.Username,
		"is_superuser":  user.IsSuperuser,
		"total_files":   totalFiles,
		"total_size":    totalSize,
		"status_counts": statusCounts,
		"recent_files":  recent,
		"top_types":     topTypes,
	})
}

func (a *API) dashboardError(c *gin.Context, requestID string, err error) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error("Failed to build dashboard stats", zap.Error(err))
}
