package models

import "time"

// LoginAuditModel is one append-only row per login attempt, successful
// or not.
type LoginAuditModel struct {
	Base
	UserID    int64     `json:"user_id"    gorm:"index"`
	LoginAt   time.Time `json:"login_at"   gorm:"index;not null"`
	IP        string    `json:"ip_address" gorm:"size:100"`
	UserAgent string    `json:"user_agent" gorm:"type:text"`
	Location  string    `json:"location"   gorm:"size:120"`
	Success   bool      `json:"success"`
}

func (LoginAuditModel) TableName() string { return "login_audits" }
