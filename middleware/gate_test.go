package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"filedrop/transfer-api/model"
	"filedrop/transfer-api/session"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gateFixture struct {
	db       *gorm.DB
	sessions *session.Store
	router   *gin.Engine
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	gin.SetMode(gin.TestMode)
	viper.Set("session.cookie_name", "session_token")
	viper.Set("session.timeout", 300)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.User{}, model.File{}, model.Session{}))

	sessions := session.NewStore(db)

	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }

	router := gin.New()
	router.Use(NewRequestIDMiddleware(), NewAuthGate(db, sessions))
	router.GET("/", ok)
	router.GET("/logout", ok)
	router.GET("/static/app.css", ok)
	router.GET("/detail/:id", func(c *gin.Context) {
		file := c.MustGet(CtxFileRecord).(*model.File)
		c.JSON(http.StatusOK, file)
	})

	return &gateFixture{db: db, sessions: sessions, router: router}
}

func (f *gateFixture) seedUser(t *testing.T, id string, super bool) {
	t.Helper()

	require.NoError(t, f.db.Create(&model.User{
		ID:           id,
		Username:     id,
		PasswordHash: "x",
		IsSuperuser:  super,
	}).Error)
}

func (f *gateFixture) request(t *testing.T, path, token string, xhr bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
	}
	if xhr {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestGateAnonymousBrowserRedirects(t *testing.T) {
	f := newGateFixture(t)

	w := f.request(t, "/", "", false)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?notice=login_required", w.Header().Get("Location"))
}

func TestGateAnonymousAsyncGetsJSON(t *testing.T) {
	f := newGateFixture(t)

	w := f.request(t, "/", "", true)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"invalid"`)
}

func TestGateStaticAndOpenPathsBypass(t *testing.T) {
	f := newGateFixture(t)

	assert.Equal(t, http.StatusOK, f.request(t, "/static/app.css", "", false).Code)
	assert.Equal(t, http.StatusOK, f.request(t, "/logout", "", false).Code)
}

func TestGateValidSessionPassesAndTouches(t *testing.T) {
	f := newGateFixture(t)
	f.seedUser(t, "user-1", false)

	past := time.Now().Add(-2 * time.Minute)
	sess, err := f.sessions.Create("user-1", "", past)
	require.NoError(t, err)

	w := f.request(t, "/", sess.Token, false)
	assert.Equal(t, http.StatusOK, w.Code)

	// Passing the gate refreshed last_activity
	reloaded, err := f.sessions.Get(sess.Token)
	require.NoError(t, err)
	assert.Greater(t, reloaded.LastActivity, past.Unix())
}

func TestGateExpiredSessionForcedOut(t *testing.T) {
	f := newGateFixture(t)
	f.seedUser(t, "user-1", false)

	sess, err := f.sessions.Create("user-1", "", time.Now().Add(-301*time.Second))
	require.NoError(t, err)

	w := f.request(t, "/", sess.Token, false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?notice=session_expired", w.Header().Get("Location"))

	// The session row is gone
	_, err = f.sessions.Get(sess.Token)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// A retry with the same token stays rejected, re-login is required
	w = f.request(t, "/", sess.Token, false)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestGateExpiredSessionAsyncDenial(t *testing.T) {
	f := newGateFixture(t)
	f.seedUser(t, "user-1", false)

	sess, err := f.sessions.Create("user-1", "", time.Now().Add(-10*time.Minute))
	require.NoError(t, err)

	w := f.request(t, "/", sess.Token, true)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"expired"`)
}

func TestGateCorruptActivityFailsClosed(t *testing.T) {
	f := newGateFixture(t)
	f.seedUser(t, "user-1", false)

	sess, err := f.sessions.Create("user-1", "", time.Now())
	require.NoError(t, err)

	// Mangle the stored timestamp
	require.NoError(t, f.db.Model(model.Session{}).
		Where("token = ?", sess.Token).
		Update("last_activity", 0).
		Error)

	w := f.request(t, "/", sess.Token, false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?notice=session_expired", w.Header().Get("Location"))
}

func TestGateFilePolicy(t *testing.T) {
	f := newGateFixture(t)
	f.seedUser(t, "owner", false)
	f.seedUser(t, "stranger", false)
	f.seedUser(t, "root", true)

	require.NoError(t, f.db.Create(&model.File{
		UserID:       "owner",
		StoredPath:   "uploads/2025/01/01/abc.txt",
		OriginalName: "abc.txt",
		Status:       model.StatusPending,
		UploadedAt:   time.Now().Unix(),
	}).Error)

	now := time.Now()
	ownerSess, err := f.sessions.Create("owner", "", now)
	require.NoError(t, err)
	strangerSess, err := f.sessions.Create("stranger", "", now)
	require.NoError(t, err)
	rootSess, err := f.sessions.Create("root", "", now)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, f.request(t, "/detail/1", ownerSess.Token, false).Code)
	assert.Equal(t, http.StatusForbidden, f.request(t, "/detail/1", strangerSess.Token, false).Code)
	assert.Equal(t, http.StatusOK, f.request(t, "/detail/1", rootSess.Token, false).Code)

	assert.Equal(t, http.StatusNotFound, f.request(t, "/detail/999", ownerSess.Token, false).Code)
	assert.Equal(t, http.StatusNotFound, f.request(t, "/detail/not-a-number", ownerSess.Token, false).Code)
}
