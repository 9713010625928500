package services

import (
	"context"
	"time"
	"unicode"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

const (
	weakPasswordMinLen = 12
	stalePasswordAge   = 180 * 24 * time.Hour
)

// VaultEntryReport classifies one saved password for the health report.
type VaultEntryReport struct {
	ID        int64     `json:"id"`
	Website   string    `json:"website"`
	Username  string    `json:"username"`
	Weak      bool      `json:"weak"`
	Reused    bool      `json:"reused"`
	Old       bool      `json:"old"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VaultReport summarizes password health across a user's vault.
type VaultReport struct {
	Total   int                `json:"total"`
	Weak    int                `json:"weak"`
	Reused  int                `json:"reused"`
	Old     int                `json:"old"`
	Entries []VaultEntryReport `json:"entries"`
}

// ---------------------------------------------------------------------
// VaultService – saved passwords, encrypted at rest
// ---------------------------------------------------------------------

type VaultService interface {
	Create(ctx context.Context, entry *models.SavedPassword) error
	Get(ctx context.Context, id, userID int64) (*models.SavedPassword, error)
	List(ctx context.Context, userID int64) ([]*models.SavedPassword, error)
	Update(ctx context.Context, entry *models.SavedPassword) error
	Delete(ctx context.Context, id, userID int64) error
	Report(ctx context.Context, userID int64) (*VaultReport, error)
}

type vaultService struct {
	cfg       *config.Config
	vaultRepo repositories.SavedPasswordRepository
}

func NewVaultService(cfg *config.Config, vaultRepo repositories.SavedPasswordRepository) VaultService {
	return &vaultService{cfg: cfg, vaultRepo: vaultRepo}
}

func (s *vaultService) Create(ctx context.Context, entry *models.SavedPassword) error {
	encrypted, err := utils.Encrypt(s.cfg.DBEncryptionKey, entry.Password)
	if err != nil {
		return err
	}
	plain := entry.Password
	entry.Password = encrypted
	if err := s.vaultRepo.Create(ctx, entry); err != nil {
		return err
	}
	entry.Password = plain
	return nil
}

func (s *vaultService) Get(ctx context.Context, id, userID int64) (*models.SavedPassword, error) {
	entry, err := s.vaultRepo.GetByID(ctx, id, userID)
	if err != nil || entry == nil {
		return entry, err
	}
	return s.decryptEntry(entry)
}

func (s *vaultService) List(ctx context.Context, userID int64) ([]*models.SavedPassword, error) {
	entries, err := s.vaultRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		decrypted, err := s.decryptEntry(e)
		if err != nil {
			return nil, err
		}
		entries[i] = decrypted
	}
	return entries, nil
}

func (s *vaultService) Update(ctx context.Context, entry *models.SavedPassword) error {
	existing, err := s.vaultRepo.GetByID(ctx, entry.ID, entry.UserID)
	if err != nil {
		return err
	}
	if existing == nil {
		return utils.ErrCredentialNotFound
	}

	encrypted, err := utils.Encrypt(s.cfg.DBEncryptionKey, entry.Password)
	if err != nil {
		return err
	}
	plain := entry.Password
	entry.Password = encrypted
	if err := s.vaultRepo.Update(ctx, entry); err != nil {
		return err
	}
	entry.Password = plain
	return nil
}

func (s *vaultService) Delete(ctx context.Context, id, userID int64) error {
	deleted, err := s.vaultRepo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return utils.ErrCredentialNotFound
	}
	return nil
}

// Report flags weak, reused and stale passwords across the vault.
func (s *vaultService) Report(ctx context.Context, userID int64) (*VaultReport, error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(entries))
	for _, e := range entries {
		counts[e.Password]++
	}

	report := &VaultReport{Total: len(entries)}
	now := time.Now()
	for _, e := range entries {
		er := VaultEntryReport{
			ID:        e.ID,
			Website:   e.Website,
			Username:  e.Username,
			Weak:      isWeakPassword(e.Password),
			Reused:    counts[e.Password] > 1,
			Old:       now.Sub(e.UpdatedAt) > stalePasswordAge,
			UpdatedAt: e.UpdatedAt,
		}
		if er.Weak {
			report.Weak++
		}
		if er.Reused {
			report.Reused++
		}
		if er.Old {
			report.Old++
		}
		report.Entries = append(report.Entries, er)
	}
	return report, nil
}

func (s *vaultService) decryptEntry(entry *models.SavedPassword) (*models.SavedPassword, error) {
	decrypted, err := utils.Decrypt(s.cfg.DBEncryptionKey, entry.Password)
	if err != nil {
		return nil, err
	}
	entry.Password = decrypted
	return entry, nil
}

// isWeakPassword applies a simple strength heuristic: minimum length
// plus at least three of the four character classes.
func isWeakPassword(password string) bool {
	if len(password) < weakPasswordMinLen {
		return true
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	classes := 0
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			classes++
		}
	}
	return classes < 3
}
