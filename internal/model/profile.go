package model

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the enumerated genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

const DefaultCountry = "KE"

// Profile 用户资料，与 User 一对一
type Profile struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	User      *User     `gorm:"foreignKey:UserID"`
	Bio       string    `gorm:"type:text"`
	Gender    Gender    `gorm:"type:varchar(20);not null;default:other"`
	Country   string    `gorm:"type:varchar(2);not null;default:KE"`
	Avatar    *string   `gorm:"type:varchar(512)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Profile) TableName() string { return "profiles" }
