package api

import (
	"net/http"

	"filedrop/transfer-api/middleware"
	"filedrop/transfer-api/model"

	"github.com/gin-gonic/gin"
)

// FileDetail returns the metadata of one file. The gate already resolved
// the record and verified access.
func (a *API) FileDetail(c *gin.Context) {
	file := c.MustGet(middleware.CtxFileRecord).(*model.File)

	c.JSON(http.StatusOK, file)
}
