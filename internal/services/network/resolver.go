package network

import (
	"strings"

	"fraudguard/internal/models"

	"golang.org/x/text/cases"
)

// folder applies Unicode case folding. A cases.Caser carries state, so each
// build owns its own folder.
type folder struct {
	caser cases.Caser
}

func newFolder() *folder {
	return &folder{caser: cases.Fold()}
}

func (f *folder) fold(s string) string {
	return f.caser.String(strings.TrimSpace(s))
}

type resolution struct {
	user *models.User
	ok   bool
}

// resolver maps an extracted counterparty string to a directory user:
// exact name first, then email ignoring case, then a case-insensitive
// substring match in either direction. Users must be sorted by ID so the
// fallback picks the lowest ID.
type resolver struct {
	users   []models.User
	folded  []string
	byName  map[string]*models.User
	byEmail map[string]*models.User
	folder  *folder
	memo    map[string]resolution
}

func newResolver(users []models.User, f *folder) *resolver {
	r := &resolver{
		users:   users,
		folded:  make([]string, len(users)),
		byName:  make(map[string]*models.User, len(users)),
		byEmail: make(map[string]*models.User, len(users)),
		folder:  f,
		memo:    make(map[string]resolution),
	}
	for i := range users {
		u := &users[i]
		r.folded[i] = f.fold(u.Name)
		if _, dup := r.byName[u.Name]; !dup && u.Name != "" {
			r.byName[u.Name] = u
		}
		if email := f.fold(u.Email); email != "" {
			if _, dup := r.byEmail[email]; !dup {
				r.byEmail[email] = u
			}
		}
	}
	return r
}

func (r *resolver) resolve(name string) (*models.User, bool) {
	if name == "" {
		return nil, false
	}
	if res, ok := r.memo[name]; ok {
		return res.user, res.ok
	}
	u, ok := r.lookup(name)
	r.memo[name] = resolution{user: u, ok: ok}
	return u, ok
}

func (r *resolver) lookup(name string) (*models.User, bool) {
	if u, ok := r.byName[name]; ok {
		return u, true
	}
	folded := r.folder.fold(name)
	if folded == "" {
		return nil, false
	}
	if u, ok := r.byEmail[folded]; ok {
		return u, true
	}
	for i, candidate := range r.folded {
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, folded) || strings.Contains(folded, candidate) {
			return &r.users[i], true
		}
	}
	return nil, false
}
