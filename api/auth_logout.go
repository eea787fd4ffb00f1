package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Logout destroys the current session. Safe to call with no session at
// all, logging out twice lands in the same logged-out state.
func (a *API) Logout(c *gin.Context) {
	cookieName := viper.GetString("session.cookie_name")

	token, err := c.Cookie(cookieName)
	if err == nil && token != "" {
		if err := a.Sessions.ForceExpire(token); err != nil {
			zap.L().Error("Failed to destroy session on logout", zap.Error(err))
		}
	}

	c.SetCookie(cookieName, "", -1, "/", "", viper.GetBool("host.ssl.enabled"), true)

	c.JSON(http.StatusOK, gin.H{
		"message": "You have been logged out",
	})
}
