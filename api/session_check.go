package api

import (
	"errors"
	"net/http"
	"time"

	"filedrop/transfer-api/session"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type checkSessionBody struct {
	Action string `json:"action"`
}

// CheckSession is the frontend's session probe. It sits outside the auth
// gate so an expired session can be reported as structured JSON instead
// of a redirect. "heartbeat" refreshes activity, "check" only reports.
func (a *API) CheckSession(c *gin.Context) {
	var data checkSessionBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
		})
		return
	}

	if data.Action != "heartbeat" && data.Action != "check" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Unknown action",
		})
		return
	}

	cookieName := viper.GetString("session.cookie_name")

	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":  "invalid",
			"message": "No active session",
		})
		return
	}

	sess, err := a.Sessions.Get(token)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			zap.L().Error("Failed to load session, failing closed", zap.Error(err))
		}

		c.SetCookie(cookieName, "", -1, "/", "", viper.GetBool("host.ssl.enabled"), true)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":  "invalid",
			"message": "No active session",
		})
		return
	}

	now := time.Now()

	if session.IsExpired(sess, now, a.Sessions.Timeout) {
		if err := a.Sessions.ForceExpire(token); err != nil {
			zap.L().Error("Failed to destroy expired session", zap.Error(err))
		}

		c.SetCookie(cookieName, "", -1, "/", "", viper.GetBool("host.ssl.enabled"), true)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":  "expired",
			"message": "Session expired due to inactivity",
		})
		return
	}

	if data.Action == "heartbeat" {
		if err := a.Sessions.Touch(sess, now); err != nil {
			zap.L().Error("Failed to refresh session activity", zap.Error(err))

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "Internal server error",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Session refreshed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "valid",
		"message":    "Session is active",
		"expires_in": int64(a.Sessions.ExpiresIn(sess, now).Seconds()),
	})
}
