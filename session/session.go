// Package session tracks server-side login sessions and decides when
// inactivity kills them. Expiry is evaluated lazily when a request shows
// up, there is no background sweeper. A session nobody touches again just
// sits in the table until the next request for it arrives and fails.
package session

import (
	"errors"
	"fmt"
	"time"

	"filedrop/transfer-api/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

const tokenLength = 32

var ErrNotFound = errors.New("session not found")

// IsExpired reports whether a session has gone stale. A nil session, a
// missing or garbage last-activity timestamp and a timestamp older than
// the timeout all count as expired. Corrupt state always fails closed.
func IsExpired(s *model.Session, now time.Time, timeout time.Duration) bool {
	if s == nil {
		return true
	}

	// Zero or negative means the timestamp was never written or got
	// mangled, never treat that as a live session
	if s.LastActivity <= 0 {
		return true
	}

	return now.Unix()-s.LastActivity > int64(timeout.Seconds())
}

// Store manages session rows. The database supplies the concurrency
// control, concurrent touches within one session are last-writer-wins.
type Store struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		DB:      db,
		Timeout: time.Duration(viper.GetInt("session.timeout")) * time.Second,
	}
}

// Create starts a fresh session for a user after a successful credential
// check. login_time and last_activity both start at now.
func (s *Store) Create(userID, userAgent string, now time.Time) (*model.Session, error) {
	token, err := gonanoid.New(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token, %w", err)
	}

	sess := &model.Session{
		Token:        token,
		UserID:       userID,
		LastActivity: now.Unix(),
		LoginTime:    now.Unix(),
		UserAgent:    userAgent,
	}

	if err := s.DB.Create(sess).Error; err != nil {
		return nil, fmt.Errorf("failed to create session, %w", err)
	}

	return sess, nil
}

// Get loads a session by its token
func (s *Store) Get(token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	var sess model.Session

	err := s.DB.Where("token = ?", token).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to load session, %w", err)
	}

	return &sess, nil
}

// Touch moves last_activity up to now. Only ever called for sessions that
// already passed the expiry check, expired sessions get destroyed instead
// of refreshed.
func (s *Store) Touch(sess *model.Session, now time.Time) error {
	// last_activity never moves backwards
	if now.Unix() < sess.LastActivity {
		return nil
	}

	sess.LastActivity = now.Unix()

	err := s.DB.
		Model(model.Session{}).
		Where("token = ?", sess.Token).
		Update("last_activity", sess.LastActivity).
		Error
	if err != nil {
		return fmt.Errorf("failed to touch session, %w", err)
	}

	return nil
}

// ForceExpire destroys a session and with it the authenticated principal.
// Idempotent, expiring a session that is already gone is a success.
func (s *Store) ForceExpire(token string) error {
	if token == "" {
		return nil
	}

	err := s.DB.Where("token = ?", token).Delete(model.Session{}).Error
	if err != nil {
		return fmt.Errorf("failed to destroy session, %w", err)
	}

	return nil
}

// ExpiresIn returns how long the session has left before inactivity kills
// it. Zero or negative means it is already dead.
func (s *Store) ExpiresIn(sess *model.Session, now time.Time) time.Duration {
	if sess == nil || sess.LastActivity <= 0 {
		return 0
	}

	return time.Duration(sess.LastActivity+int64(s.Timeout.Seconds())-now.Unix()) * time.Second
}
