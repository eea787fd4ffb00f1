package model

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"unique;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Superusers bypass ownership checks and see every file
	IsSuperuser bool `gorm:"default:false" json:"is_superuser"`

	Files    []File    `gorm:"foreignKey:UserID" json:"-"`
	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`
}
