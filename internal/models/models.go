package models

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PassHash     []byte
	ReferralCode string
	ReferredBy   *string
	CreatedAt    time.Time
}

type ReferralStatus string

const (
	ReferralStatusPending    ReferralStatus = "pending"
	ReferralStatusSuccessful ReferralStatus = "successful"
)

type Referral struct {
	ID             int64
	ReferrerID     int64
	ReferredUserID int64
	DateReferred   time.Time
	Status         ReferralStatus
}

type ReferredUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ReferralStats struct {
	Total      int64
	Successful int64
}

type EmailMessage struct {
	Email   string `json:"to"`
	Link    string `json:"link"`
	Subject string `json:"subject"`
}
