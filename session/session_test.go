package session

import (
	"path/filepath"
	"testing"
	"time"

	"filedrop/transfer-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(model.User{}, model.Session{}))

	return &Store{
		DB:      db,
		Timeout: 300 * time.Second,
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	timeout := 300 * time.Second

	tests := []struct {
		name    string
		session *model.Session
		expired bool
	}{
		{"nil session", nil, true},
		{"zero last activity", &model.Session{LastActivity: 0}, true},
		{"negative last activity", &model.Session{LastActivity: -42}, true},
		{"fresh", &model.Session{LastActivity: now.Unix()}, false},
		{"at the limit", &model.Session{LastActivity: now.Unix() - 300}, false},
		{"one past the limit", &model.Session{LastActivity: now.Unix() - 301}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, IsExpired(tt.session, now, timeout))
		})
	}
}

func TestIsExpiredMonotonic(t *testing.T) {
	sess := &model.Session{LastActivity: 1000}
	timeout := 300 * time.Second

	firstExpired := time.Unix(1301, 0)
	require.True(t, IsExpired(sess, firstExpired, timeout))

	// Once expired it stays expired at every later point in time
	for _, offset := range []int64{1, 60, 3600, 86400} {
		assert.True(t, IsExpired(sess, firstExpired.Add(time.Duration(offset)*time.Second), timeout))
	}
}

func TestIdleTimeoutScenario(t *testing.T) {
	s := newTestStore(t)

	login := time.Unix(1_000_000, 0)

	sess, err := s.Create("user-1", "test-agent", login)
	require.NoError(t, err)
	require.Equal(t, login.Unix(), sess.LastActivity)
	require.Equal(t, login.Unix(), sess.LoginTime)

	// Request at t=299 is accepted and refreshes activity
	at299 := login.Add(299 * time.Second)
	require.False(t, IsExpired(sess, at299, s.Timeout))
	require.NoError(t, s.Touch(sess, at299))

	reloaded, err := s.Get(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, at299.Unix(), reloaded.LastActivity)

	// Simulate idling past the timeout from that point on
	at601 := at299.Add(302 * time.Second)
	require.True(t, IsExpired(reloaded, at601, s.Timeout))
	require.NoError(t, s.ForceExpire(sess.Token))

	// The session is gone, a later request can't resurrect it
	_, err = s.Get(sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForceExpireIdempotent(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.Create("user-1", "", time.Now())
	require.NoError(t, err)

	require.NoError(t, s.ForceExpire(sess.Token))
	require.NoError(t, s.ForceExpire(sess.Token))
	require.NoError(t, s.ForceExpire("never-existed"))
	require.NoError(t, s.ForceExpire(""))

	_, err = s.Get(sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTouchNeverRewinds(t *testing.T) {
	s := newTestStore(t)

	now := time.Unix(2_000_000, 0)

	sess, err := s.Create("user-1", "", now)
	require.NoError(t, err)

	// A touch dated before the current activity is dropped
	require.NoError(t, s.Touch(sess, now.Add(-time.Minute)))

	reloaded, err := s.Get(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), reloaded.LastActivity)
}

func TestGetEmptyToken(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiresIn(t *testing.T) {
	s := newTestStore(t)

	now := time.Unix(3_000_000, 0)
	sess := &model.Session{LastActivity: now.Unix() - 100}

	assert.Equal(t, 200*time.Second, s.ExpiresIn(sess, now))
	assert.Equal(t, time.Duration(0), s.ExpiresIn(nil, now))
	assert.LessOrEqual(t, s.ExpiresIn(&model.Session{LastActivity: now.Unix() - 400}, now), time.Duration(0))
}
