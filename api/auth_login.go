package api

import (
	"net/http"
	"time"

	"filedrop/transfer-api/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type loginBody struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Login is the single credential entry point. On success it creates a
// server-side session row and hands the opaque token to the client in an
// HttpOnly cookie.
func (a *API) Login(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Error("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Username == "" || data.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Username and password are required",
			"requestID": requestID,
		})
		return
	}

	var user model.User

	if err := a.DB.Where("username = ?", data.Username).First(&user).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})

		zap.L().Info("Login failed",
			zap.String("username", data.Username),
			zap.String("outcome", "unknown user"),
			zap.String("requestID", requestID),
		)
		return
	}

	ok, err := a.Argon.VerifyPassword(data.Password, user.PasswordHash)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to verify password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})

		zap.L().Info("Login failed",
			zap.String("username", data.Username),
			zap.String("outcome", "bad password"),
			zap.String("requestID", requestID),
		)
		return
	}

	sess, err := a.Sessions.Create(user.ID, c.Request.UserAgent(), time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create session", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// Cookie outlives the idle timeout on purpose, the server-side check
	// is what decides expiry
	c.SetCookie(
		viper.GetString("session.cookie_name"),
		sess.Token,
		60*60*24,
		"/", "",
		viper.GetBool("host.ssl.enabled"),
		true,
	)

	zap.L().Info("Login",
		zap.String("username", user.Username),
		zap.String("userID", user.ID),
		zap.String("outcome", "success"),
	)

	c.JSON(http.StatusOK, gin.H{
		"userID":   user.ID,
		"username": user.Username,
	})
}
