package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Name         string        `gorm:"size:60"`
	Email        string        `gorm:"uniqueIndex;size:255"`
	PasswordHash string        `gorm:"size:255"`
	Subscription *Subscription `gorm:"constraint:OnDelete:CASCADE"`
	Portfolios   []Portfolio   `gorm:"constraint:OnDelete:CASCADE"`
}

// Subscription 记录用户的套餐与状态，与 User 一对一。
type Subscription struct {
	gorm.Model
	UserID uint   `gorm:"uniqueIndex;not null"`
	Plan   string `gorm:"size:16;not null;default:FREE"`
	Status string `gorm:"size:16;not null;default:ACTIVE"`
}

// Portfolio 表示用户创建的作品集站点。
type Portfolio struct {
	gorm.Model
	UserID      uint           `gorm:"index;not null"`
	User        User           `gorm:"constraint:OnDelete:CASCADE"`
	Title       string         `gorm:"size:255"`
	Subdomain   string         `gorm:"uniqueIndex;size:63;not null"`
	TemplateID  string         `gorm:"size:64;not null"`
	Data        datatypes.JSON `gorm:"type:jsonb"`
	Config      datatypes.JSON `gorm:"type:jsonb"`
	Published   bool           `gorm:"not null;default:false"`
	PublishedAt *time.Time
	// FreeSlot 在免费档用户创建作品集时写入 owner id，唯一索引保证每个免费用户最多占用一个。
	// 付费档创建时为 NULL，不受约束。
	FreeSlot         *uint  `gorm:"uniqueIndex"`
	PreviewObjectKey string `gorm:"size:512"`
}

// ResumeUpload 记录一次成功解析的简历上传。
type ResumeUpload struct {
	gorm.Model
	UserID     uint           `gorm:"index;not null"`
	User       User           `gorm:"constraint:OnDelete:CASCADE"`
	Filename   string         `gorm:"size:255"`
	FileKey    string         `gorm:"size:512"`
	ParsedData datatypes.JSON `gorm:"type:jsonb"`
	Confidence float64
	Status     string `gorm:"size:32"`
}
