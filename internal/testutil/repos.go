// Package testutil provides in-memory repository fakes for service
// tests. They mirror the SQL repositories' contracts, including
// (nil, nil) misses and expiry filtering.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/repositories"
)

// ---------------------------------------------------------------------
// FakeUserRepo
// ---------------------------------------------------------------------

type FakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{users: make(map[int64]*models.User)}
}

var _ repositories.UserRepository = (*FakeUserRepo)(nil)

func (r *FakeUserRepo) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *FakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *FakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *FakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *FakeUserRepo) Update(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	cp.UpdatedAt = time.Now()
	r.users[u.ID] = &cp
	return nil
}

// ---------------------------------------------------------------------
// FakeCredentialRepo
// ---------------------------------------------------------------------

type FakeCredentialRepo struct {
	mu     sync.Mutex
	nextID int64
	creds  map[int64]*models.Credential
}

func NewFakeCredentialRepo() *FakeCredentialRepo {
	return &FakeCredentialRepo{creds: make(map[int64]*models.Credential)}
}

var _ repositories.CredentialRepository = (*FakeCredentialRepo)(nil)

func (r *FakeCredentialRepo) Create(ctx context.Context, c *models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	cp := *c
	r.creds[c.ID] = &cp
	return nil
}

func (r *FakeCredentialRepo) GetByCredentialID(ctx context.Context, credentialID string) (*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creds {
		if c.CredentialID == credentialID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *FakeCredentialRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Credential
	for _, c := range r.creds {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *FakeCredentialRepo) UpdateSignCount(ctx context.Context, id int64, signCount uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.creds[id]; ok {
		c.SignCount = signCount
	}
	return nil
}

func (r *FakeCredentialRepo) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.creds {
		if c.UserID == userID {
			delete(r.creds, id)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------
// FakeChallengeRepo
// ---------------------------------------------------------------------

type FakeChallengeRepo struct {
	mu         sync.Mutex
	seq        int64
	challenges map[uuid.UUID]*models.Challenge
	order      map[uuid.UUID]int64
}

func NewFakeChallengeRepo() *FakeChallengeRepo {
	return &FakeChallengeRepo{
		challenges: make(map[uuid.UUID]*models.Challenge),
		order:      make(map[uuid.UUID]int64),
	}
}

var _ repositories.ChallengeRepository = (*FakeChallengeRepo)(nil)

func (r *FakeChallengeRepo) Create(ctx context.Context, c *models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	r.seq++
	cp := *c
	r.challenges[c.ID] = &cp
	r.order[c.ID] = r.seq
	return nil
}

func (r *FakeChallengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *FakeChallengeRepo) ListActiveByUser(ctx context.Context, userID int64, challengeType models.ChallengeType) ([]*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*models.Challenge
	for _, c := range r.challenges {
		if c.UserID != nil && *c.UserID == userID && c.Type == challengeType && !c.Expired(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	// newest first, creation order as tiebreaker
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return r.order[out[i].ID] > r.order[out[j].ID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *FakeChallengeRepo) AssignUser(ctx context.Context, id uuid.UUID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.challenges[id]; ok {
		c.UserID = &userID
	}
	return nil
}

func (r *FakeChallengeRepo) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok || c.Expired(time.Now()) {
		return false, nil
	}
	delete(r.challenges, id)
	delete(r.order, id)
	return true, nil
}

func (r *FakeChallengeRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var n int64
	for id, c := range r.challenges {
		if c.Expired(now) {
			delete(r.challenges, id)
			delete(r.order, id)
			n++
		}
	}
	return n, nil
}

// Expire forces a stored challenge past its expiry, for tests.
func (r *FakeChallengeRepo) Expire(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.challenges[id]; ok {
		c.ExpiresAt = time.Now().Add(-time.Second)
	}
}

// Count reports how many challenges are stored, expired or not.
func (r *FakeChallengeRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.challenges)
}

// ---------------------------------------------------------------------
// FakeRecoveryCodeRepo
// ---------------------------------------------------------------------

type FakeRecoveryCodeRepo struct {
	mu     sync.Mutex
	nextID int64
	codes  map[int64]*models.RecoveryCode
}

func NewFakeRecoveryCodeRepo() *FakeRecoveryCodeRepo {
	return &FakeRecoveryCodeRepo{codes: make(map[int64]*models.RecoveryCode)}
}

var _ repositories.RecoveryCodeRepository = (*FakeRecoveryCodeRepo)(nil)

func (r *FakeRecoveryCodeRepo) CreateBatch(ctx context.Context, userID int64, codes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range codes {
		r.nextID++
		r.codes[r.nextID] = &models.RecoveryCode{
			ID:        r.nextID,
			UserID:    userID,
			Code:      code,
			CreatedAt: time.Now(),
		}
	}
	return nil
}

func (r *FakeRecoveryCodeRepo) Consume(ctx context.Context, userID int64, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.UserID == userID && c.Code == code && !c.Used {
			now := time.Now()
			c.Used = true
			c.UsedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r *FakeRecoveryCodeRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RecoveryCode
	for _, c := range r.codes {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *FakeRecoveryCodeRepo) DeleteAllByUserID(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.codes {
		if c.UserID == userID {
			delete(r.codes, id)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------
// FakeSavedPasswordRepo
// ---------------------------------------------------------------------

type FakeSavedPasswordRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]*models.SavedPassword
}

func NewFakeSavedPasswordRepo() *FakeSavedPasswordRepo {
	return &FakeSavedPasswordRepo{entries: make(map[int64]*models.SavedPassword)}
}

var _ repositories.SavedPasswordRepository = (*FakeSavedPasswordRepo)(nil)

func (r *FakeSavedPasswordRepo) Create(ctx context.Context, p *models.SavedPassword) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.entries[p.ID] = &cp
	return nil
}

func (r *FakeSavedPasswordRepo) GetByID(ctx context.Context, id, userID int64) (*models.SavedPassword, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *FakeSavedPasswordRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SavedPassword, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SavedPassword
	for _, p := range r.entries {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Website < out[j].Website })
	return out, nil
}

func (r *FakeSavedPasswordRepo) Update(ctx context.Context, p *models.SavedPassword) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.entries[p.ID]
	if !ok || existing.UserID != p.UserID {
		return nil
	}
	cp := *p
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	r.entries[p.ID] = &cp
	return nil
}

func (r *FakeSavedPasswordRepo) Delete(ctx context.Context, id, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	delete(r.entries, id)
	return true, nil
}

// SetUpdatedAt backdates an entry, for staleness tests.
func (r *FakeSavedPasswordRepo) SetUpdatedAt(id int64, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.entries[id]; ok {
		p.UpdatedAt = t
	}
}

// Raw returns the stored entry without tenant filtering, for tests that
// inspect what is persisted at rest.
func (r *FakeSavedPasswordRepo) Raw(id int64) *models.SavedPassword {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// ---------------------------------------------------------------------
// FakeTokenRepo
// ---------------------------------------------------------------------

type FakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*models.RefreshToken
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{tokens: make(map[uuid.UUID]*models.RefreshToken)}
}

var _ repositories.TokenRepository = (*FakeTokenRepo)(nil)

func (r *FakeTokenRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	cp := *t
	r.tokens[t.ID] = &cp
	return nil
}

func (r *FakeTokenRepo) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *FakeTokenRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[id]; ok {
		t.Revoked = true
	}
	return nil
}

func (r *FakeTokenRepo) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (r *FakeTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var n int64
	for id, t := range r.tokens {
		if t.Revoked || now.After(t.ExpiresAt) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}
