// Package memory is an in-process store for users, campaigns and revoked
// tokens. It backs `DATABASE_URL=memory://` and the service tests.
package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	campaignentity "github.com/ovaphlow/pitchfork/service-campaign-go/internal/campaign/entity"
	userentity "github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/repo"
)

// Store keeps every record behind one lock, so a write is visible to the
// next read.
type Store struct {
	mu sync.RWMutex

	users   map[string]*userentity.User
	byEmail map[string]string

	campaigns map[string]*campaignentity.Campaign
	order     []string // campaign ids in creation order

	revoked map[string]time.Time
	now     func() time.Time
}

func New() *Store {
	return &Store{
		users:     map[string]*userentity.User{},
		byEmail:   map[string]string{},
		campaigns: map[string]*campaignentity.Campaign{},
		revoked:   map[string]time.Time{},
		now:       time.Now,
	}
}

// Users returns the credential store view.
func (s *Store) Users() *Users { return &Users{s} }

// Campaigns returns the campaign store view.
func (s *Store) Campaigns() *Campaigns { return &Campaigns{s} }

// Revoked returns the token denylist view.
func (s *Store) Revoked() *Revoked { return &Revoked{s} }

// Ping always succeeds unless ctx is done.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Users implements the credential store.
type Users struct{ s *Store }

func (u *Users) Create(ctx context.Context, usr *userentity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, taken := u.s.byEmail[usr.Email]; taken {
		return userrepo.ErrEmailTaken
	}
	c := *usr
	c.Campaigns = nil
	u.s.users[c.ID] = &c
	u.s.byEmail[c.Email] = c.ID
	return nil
}

func (u *Users) GetByEmail(ctx context.Context, email string) (*userentity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	id, ok := u.s.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u.s.userLocked(id), nil
}

func (u *Users) GetByID(ctx context.Context, id string) (*userentity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	if _, ok := u.s.users[id]; !ok {
		return nil, sql.ErrNoRows
	}
	return u.s.userLocked(id), nil
}

func (s *Store) userLocked(id string) *userentity.User {
	c := *s.users[id]
	c.Campaigns = []string{}
	for _, cid := range s.order {
		if s.campaigns[cid].Creator == id {
			c.Campaigns = append(c.Campaigns, cid)
		}
	}
	return &c
}

// Campaigns implements the campaign store.
type Campaigns struct{ s *Store }

func (c *Campaigns) Create(ctx context.Context, cp *campaignentity.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cc := *cp
	c.s.campaigns[cc.ID] = &cc
	c.s.order = append(c.s.order, cc.ID)
	return nil
}

func (c *Campaigns) List(ctx context.Context) ([]*campaignentity.Campaign, error) {
	return c.filter(ctx, func(*campaignentity.Campaign) bool { return true })
}

func (c *Campaigns) ListByCreator(ctx context.Context, userID string) ([]*campaignentity.Campaign, error) {
	return c.filter(ctx, func(cp *campaignentity.Campaign) bool { return cp.Creator == userID })
}

func (c *Campaigns) filter(ctx context.Context, keep func(*campaignentity.Campaign) bool) ([]*campaignentity.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := []*campaignentity.Campaign{}
	for _, id := range c.s.order {
		if cp := c.s.campaigns[id]; keep(cp) {
			cc := *cp
			out = append(out, &cc)
		}
	}
	return out, nil
}

func (c *Campaigns) GetByID(ctx context.Context, id string) (*campaignentity.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	cp, ok := c.s.campaigns[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cc := *cp
	return &cc, nil
}

func (c *Campaigns) Update(ctx context.Context, cp *campaignentity.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cur, ok := c.s.campaigns[cp.ID]
	if !ok {
		return sql.ErrNoRows
	}
	cc := *cp
	cc.Creator = cur.Creator
	cc.CreatedAt = cur.CreatedAt
	c.s.campaigns[cc.ID] = &cc
	return nil
}

func (c *Campaigns) Delete(ctx context.Context, id string) (*campaignentity.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cp, ok := c.s.campaigns[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(c.s.campaigns, id)
	for i, oid := range c.s.order {
		if oid == id {
			c.s.order = append(c.s.order[:i], c.s.order[i+1:]...)
			break
		}
	}
	return cp, nil
}

// Revoked implements the token denylist.
type Revoked struct{ s *Store }

func (r *Revoked) Revoke(ctx context.Context, tokenID, _ string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.revoked[tokenID]; !ok {
		r.s.revoked[tokenID] = expiresAt
	}
	return nil
}

func (r *Revoked) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	exp, ok := r.s.revoked[tokenID]
	return ok && exp.After(r.s.now()), nil
}

func (r *Revoked) Prune(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	var n int64
	for id, exp := range r.s.revoked {
		if !exp.After(now) {
			delete(r.s.revoked, id)
			n++
		}
	}
	return n, nil
}
