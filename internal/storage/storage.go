package storage

import "errors"

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrReferralCodeTaken  = errors.New("referral code already taken")
	ErrResetTokenNotFound = errors.New("reset token not found")
)
