package memory

import (
	"context"
	"sync"
	"time"

	"referral_service/internal/models"
	"referral_service/internal/storage"
)

// Storage is an in-memory implementation of the service's storage interfaces,
// used by tests.
type Storage struct {
	mu        sync.Mutex
	nextID    int64
	byEmail   map[string]*models.User
	byCode    map[string]*models.User
	referrals []models.Referral
	resets    map[string]resetEntry
}

type resetEntry struct {
	email     string
	expiresAt time.Time
}

func New() *Storage {
	return &Storage{
		nextID:  1,
		byEmail: make(map[string]*models.User),
		byCode:  make(map[string]*models.User),
		resets:  make(map[string]resetEntry),
	}
}

func (s *Storage) SaveUser(_ context.Context, user models.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return 0, storage.ErrUserExists
	}
	if _, ok := s.byCode[user.ReferralCode]; ok {
		return 0, storage.ErrReferralCodeTaken
	}

	user.ID = s.nextID
	s.nextID++

	u := user
	s.byEmail[u.Email] = &u
	s.byCode[u.ReferralCode] = &u

	return u.ID, nil
}

func (s *Storage) User(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return *u, nil
}

func (s *Storage) UserByReferralCode(_ context.Context, code string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byCode[code]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return *u, nil
}

func (s *Storage) UpdatePassword(_ context.Context, email string, passHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[email]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.PassHash = passHash

	return nil
}

func (s *Storage) SaveReferral(_ context.Context, referral models.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	referral.ID = s.nextID
	s.nextID++

	s.referrals = append(s.referrals, referral)

	return nil
}

func (s *Storage) ReferralsByReferrer(_ context.Context, referrerID int64) ([]models.ReferredUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var referred []models.ReferredUser

	for _, r := range s.referrals {
		if r.ReferrerID != referrerID {
			continue
		}

		for _, u := range s.byEmail {
			if u.ID == r.ReferredUserID {
				referred = append(referred, models.ReferredUser{
					Username: u.Username,
					Email:    u.Email,
				})
			}
		}
	}

	return referred, nil
}

func (s *Storage) ReferralStats(_ context.Context, referrerID int64) (models.ReferralStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats models.ReferralStats

	for _, r := range s.referrals {
		if r.ReferrerID != referrerID {
			continue
		}

		stats.Total++
		if r.Status == models.ReferralStatusSuccessful {
			stats.Successful++
		}
	}

	return stats, nil
}

func (s *Storage) SaveResetRequest(_ context.Context, token, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resets[token] = resetEntry{
		email:     email,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

func (s *Storage) ConsumeResetRequest(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.resets[token]
	if !ok {
		return "", storage.ErrResetTokenNotFound
	}

	delete(s.resets, token)

	if time.Now().After(entry.expiresAt) {
		return "", storage.ErrResetTokenNotFound
	}

	return entry.email, nil
}
