package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"filedrop/transfer-api/model"
	"filedrop/transfer-api/policy"
	"filedrop/transfer-api/session"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Context keys the gate fills in for handlers behind it
const (
	CtxUser       = "user"
	CtxUserID     = "userID"
	CtxSession    = "session"
	CtxFileRecord = "fileRecord"
)

// Paths handed through without any session handling. Static assets must
// not refresh activity, polling them would keep a session alive forever.
var staticPrefixes = []string{"/static/", "/media/"}

// Login, registration and the session probe do their own session work
var openPaths = []string{"/login", "/logout", "/register", "/check-session", "/heartbeat"}

// Admin runs as a separately authenticated subsystem
var adminPrefix = "/admin/"

// Routes addressing one specific file. The gate resolves the record and
// applies the access policy before the handler ever sees the request.
var fileRoutes = []string{"/detail/:id", "/download/:id", "/delete/:id", "/edit/:id"}

type gateVerdict int

const (
	// Evaluate the next step
	gateNext gateVerdict = iota
	// Hand the request to the handler
	gatePass
	// A response was written, stop here
	gateDone
)

type gateStep struct {
	name string
	run  func(c *gin.Context) gateVerdict
}

// Gate is the single choke point every inbound request passes through.
// It owns session expiry, authentication enforcement and per-file access
// checks, in that order, so no handler runs before the session verdict is
// in.
type Gate struct {
	db       *gorm.DB
	sessions *session.Store
	cookie   string
	steps    []gateStep
}

func NewAuthGate(db *gorm.DB, sessions *session.Store) gin.HandlerFunc {
	g := &Gate{
		db:       db,
		sessions: sessions,
		cookie:   viper.GetString("session.cookie_name"),
	}

	// Ordered, first match wins
	g.steps = []gateStep{
		{"static", g.passStatic},
		{"open", g.passOpen},
		{"admin", g.passAdmin},
		{"expiry", g.checkExpiry},
		{"auth", g.requireAuth},
		{"file-policy", g.checkFilePolicy},
		{"touch", g.touch},
	}

	return func(c *gin.Context) {
		for _, step := range g.steps {
			switch step.run(c) {
			case gateNext:
				continue
			case gatePass:
				c.Next()
				return
			case gateDone:
				return
			}
		}

		c.Next()
	}
}

func (g *Gate) passStatic(c *gin.Context) gateVerdict {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(c.Request.URL.Path, prefix) {
			return gatePass
		}
	}

	return gateNext
}

func (g *Gate) passOpen(c *gin.Context) gateVerdict {
	for _, path := range openPaths {
		if c.Request.URL.Path == path {
			return gatePass
		}
	}

	return gateNext
}

func (g *Gate) passAdmin(c *gin.Context) gateVerdict {
	if strings.HasPrefix(c.Request.URL.Path, adminPrefix) {
		return gatePass
	}

	return gateNext
}

// checkExpiry decides the session's fate before anything else runs. A
// request arriving past the idle timeout is rejected, never let through
// and refreshed. Corrupt session state fails closed.
func (g *Gate) checkExpiry(c *gin.Context) gateVerdict {
	token, err := c.Cookie(g.cookie)
	if err != nil || token == "" {
		// Anonymous, the auth step handles it
		return gateNext
	}

	sess, err := g.sessions.Get(token)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			// Can't prove the session is alive, treat it as dead
			zap.L().Error("Failed to load session, failing closed", zap.Error(err))
		}

		g.expire(c, token, "stale or unknown token")
		return gateDone
	}

	if session.IsExpired(sess, time.Now(), g.sessions.Timeout) {
		g.expire(c, token, "idle timeout")
		return gateDone
	}

	var user model.User

	err = g.db.Where("id = ?", sess.UserID).First(&user).Error
	if err != nil {
		// Session points at a user that no longer exists
		zap.L().Warn("Session for missing user",
			zap.String("userID", sess.UserID),
			zap.String("path", c.Request.URL.Path),
		)

		g.expire(c, token, "missing user")
		return gateDone
	}

	c.Set(CtxSession, sess)
	c.Set(CtxUser, &user)
	c.Set(CtxUserID, user.ID)

	return gateNext
}

func (g *Gate) requireAuth(c *gin.Context) gateVerdict {
	if _, ok := c.Get(CtxUser); ok {
		return gateNext
	}

	zap.L().Info("Unauthenticated request denied",
		zap.String("path", c.Request.URL.Path),
		zap.String("outcome", "login required"),
	)

	if isAsync(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":       "invalid",
			"message":      "Login required",
			"redirect_url": "/login",
		})
	} else {
		c.Redirect(http.StatusFound, "/login?notice=login_required")
		c.Abort()
	}

	return gateDone
}

// checkFilePolicy resolves the addressed file record and applies the
// ownership policy for routes that touch one specific file
func (g *Gate) checkFilePolicy(c *gin.Context) gateVerdict {
	full := c.FullPath()

	isFileRoute := false
	for _, route := range fileRoutes {
		if full == route {
			isFileRoute = true
			break
		}
	}

	if !isFileRoute {
		return gateNext
	}

	user := c.MustGet(CtxUser).(*model.User)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "File not found",
			"requestID": c.GetString("requestID"),
		})
		return gateDone
	}

	var file model.File

	err = g.db.Where("id = ?", id).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": c.GetString("requestID"),
			})
			return gateDone
		}

		zap.L().Error("Failed to load file record", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": c.GetString("requestID"),
		})
		return gateDone
	}

	if !policy.CanAccess(user, &file) {
		zap.L().Warn("File access denied",
			zap.String("userID", user.ID),
			zap.Uint("fileID", file.ID),
			zap.String("path", c.Request.URL.Path),
			zap.String("outcome", "permission denied"),
		)

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You don't have permission to access this file",
			"requestID": c.GetString("requestID"),
		})
		return gateDone
	}

	c.Set(CtxFileRecord, &file)

	return gateNext
}

// touch refreshes last_activity for requests that made it through every
// check. Runs strictly after the expiry decision.
func (g *Gate) touch(c *gin.Context) gateVerdict {
	sess := c.MustGet(CtxSession).(*model.Session)

	if err := g.sessions.Touch(sess, time.Now()); err != nil {
		// Last-writer-wins, a lost update only shortens the session
		zap.L().Error("Failed to refresh session activity", zap.Error(err))
	}

	return gatePass
}

// expire destroys the session, clears the cookie and either bounces the
// browser to the login page or answers async callers with a structured
// denial
func (g *Gate) expire(c *gin.Context, token, reason string) {
	if err := g.sessions.ForceExpire(token); err != nil {
		zap.L().Error("Failed to destroy expired session", zap.Error(err))
	}

	c.SetCookie(g.cookie, "", -1, "/", "", viper.GetBool("host.ssl.enabled"), true)

	zap.L().Info("Session expired",
		zap.String("path", c.Request.URL.Path),
		zap.String("reason", reason),
		zap.String("outcome", "forced logout"),
	)

	if isAsync(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":       "expired",
			"message":      "Session expired due to inactivity",
			"redirect_url": "/login",
		})
		return
	}

	c.Redirect(http.StatusFound, "/login?notice=session_expired")
	c.Abort()
}

// isAsync reports whether the caller flagged itself as a background or
// programmatic request rather than browser navigation
func isAsync(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}
