// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"filedrop/transfer-api/db"
	"filedrop/transfer-api/middleware"
	"filedrop/transfer-api/security"
	"filedrop/transfer-api/session"
	"filedrop/transfer-api/storage"

	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type API struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Argon    *security.Argon
	Blobs    storage.Store
	Sessions *session.Store
}

func NewRouter() (*API, error) {
	a := &API{}

	d, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = d

	makeLogger()

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		middleware.SecurityHeaders(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString(middleware.CtxUserID); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	a.Argon = security.New()
	a.Sessions = session.NewStore(d)

	blobs, err := storage.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage, %w", err)
	}
	a.Blobs = blobs

	// Every route below goes through the gate. The gate itself decides
	// which paths pass through untouched.
	router.Use(middleware.NewAuthGate(d, a.Sessions))

	router.Static("/static", "./static")

	maxUploadSize := viper.GetInt64("upload.max_size")
	login := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             5,
	})

	// HEAD /heartbeat 		-> Used to check if the server is alive
	router.HEAD("/heartbeat", a.Heartbeat)

	// POST /register 		-> Registers a new user
	router.POST("/register", login, middleware.BodySizeLimiter(1<<20), a.Register)

	// POST /login 			-> Logs in a user and starts a session
	router.POST("/login", login, middleware.BodySizeLimiter(1<<20), a.Login)

	// GET /logout 			-> Destroys the current session
	router.GET("/logout", a.Logout)

	// POST /check-session		-> Session heartbeat/status probe for the frontend
	router.POST("/check-session", middleware.BodySizeLimiter(1<<20), a.CheckSession)

	// GET / 			-> Dashboard stats for the logged in user
	router.GET("/", a.Dashboard)

	// GET /upload 			-> Upload constraints for the form
	router.GET("/upload", a.UploadInfo)

	// POST /upload			-> Uploads a new file and stores its record
	router.POST("/upload", middleware.BodySizeLimiter(maxUploadSize+1<<20), a.FileUpload)

	// GET /history 		-> Paginated, searchable upload history
	router.GET("/history", a.FileHistory)

	// GET /detail/:id 		-> Metadata of one file
	router.GET("/detail/:id", a.FileDetail)

	// GET /download/:id 		-> Raw blob bytes as an attachment
	router.GET("/download/:id", a.FileDownload)

	// GET /delete/:id 		-> Record data for the delete confirmation
	router.GET("/delete/:id", a.FileDeleteConfirm)

	// POST /delete/:id		-> Removes blob and record
	router.POST("/delete/:id", a.FileDelete)

	// POST /edit/:id		-> Edits description, tags or status
	router.POST("/edit/:id", middleware.BodySizeLimiter(1<<20), a.FileEdit)

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
