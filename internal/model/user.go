package model

import "time"

// User stores Telegram user metadata plus scheduling preferences.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	Timezone   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Location resolves the user's timezone, falling back to local time.
func (u User) Location() *time.Location {
	if u.Timezone != "" {
		if loc, err := time.LoadLocation(u.Timezone); err == nil {
			return loc
		}
	}
	return time.Local
}
