package model

// Session is one server-side login, keyed by the opaque token the client
// holds in a cookie. LastActivity only moves forward while the session is
// alive and the session is valid only while now-LastActivity stays within
// the configured timeout.
type Session struct {
	Token  string `gorm:"primaryKey" json:"-"`
	UserID string `gorm:"index;not null" json:"-"`

	// Unix second timestamps
	LastActivity int64 `gorm:"not null" json:"last_activity"`
	LoginTime    int64 `gorm:"not null" json:"login_time"`

	UserAgent string `gorm:"size:512" json:"-"`
}
