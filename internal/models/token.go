package models

import "time"

// TokenModel is one active or revoked session record. Records are
// soft-revoked on logout and quota eviction, never deleted, so the login
// trail stays auditable. The single exception is an expired refresh
// token, which is removed when the expiry is discovered.
type TokenModel struct {
	Base
	UserID           int64     `json:"account_id"            gorm:"index;not null"`
	AccessValue      string    `json:"token"                 gorm:"type:varchar(512);index;not null"`
	RefreshValue     string    `json:"refresh_token"         gorm:"type:varchar(512);index;not null"`
	TokenType        string    `json:"token_type"            gorm:"size:20;default:Bearer"`
	ExpiresAt        time.Time `json:"expiration_date"       gorm:"not null"`
	RefreshExpiresAt time.Time `json:"refresh_expiration_date" gorm:"not null"`
	IsMobile         bool      `json:"is_mobile"`
	Revoked          bool      `json:"revoked"               gorm:"index"`
}

func (TokenModel) TableName() string { return "tokens" }
