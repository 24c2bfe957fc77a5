package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"fraudguard/internal/models"

	"github.com/shopspring/decimal"
)

type memoryData struct {
	users        map[uint]models.User
	accounts     map[uint]models.Account // keyed by user ID
	transactions []models.Transaction
	references   map[string]struct{}

	nextUserID    uint
	nextAccountID uint
	nextTxID      uint
}

func newMemoryData() *memoryData {
	return &memoryData{
		users:      make(map[uint]models.User),
		accounts:   make(map[uint]models.Account),
		references: make(map[string]struct{}),
	}
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		users:         make(map[uint]models.User, len(d.users)),
		accounts:      make(map[uint]models.Account, len(d.accounts)),
		transactions:  make([]models.Transaction, len(d.transactions)),
		references:    make(map[string]struct{}, len(d.references)),
		nextUserID:    d.nextUserID,
		nextAccountID: d.nextAccountID,
		nextTxID:      d.nextTxID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	copy(c.transactions, d.transactions)
	for k := range d.references {
		c.references[k] = struct{}{}
	}
	return c
}

// MemoryStore is an in-process Store used for local development and tests.
// Transactions are serialized and roll back by restoring a snapshot, so
// writes made outside ExecuteInTransaction while one is running may be lost
// on rollback.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *memoryData
	now  func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: newMemoryData(),
		now:  time.Now,
	}
}

func (s *MemoryStore) Accounts() AccountRepository         { return memoryAccounts{s} }
func (s *MemoryStore) Transactions() TransactionRepository { return memoryTransactions{s} }
func (s *MemoryStore) Users() UserRepository               { return memoryUsers{s} }

func (s *MemoryStore) ExecuteInTransaction(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

type memoryAccounts struct{ s *MemoryStore }

func (r memoryAccounts) Create(ctx context.Context, account *models.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := account.BeforeCreate(nil); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.accounts[account.UserID]; ok {
		return ErrDuplicateAccount
	}
	r.s.data.nextAccountID++
	account.ID = r.s.data.nextAccountID
	now := r.s.now()
	account.CreatedAt, account.UpdatedAt = now, now
	if account.Currency == "" {
		account.Currency = "IDR"
	}
	r.s.data.accounts[account.UserID] = *account
	return nil
}

func (r memoryAccounts) GetByUserID(ctx context.Context, userID uint) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	account, ok := r.s.data.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

// GetByUserIDForUpdate needs no extra locking: transactions are already
// serialized by the store.
func (r memoryAccounts) GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.Account, error) {
	return r.GetByUserID(ctx, userID)
}

func (r memoryAccounts) UpdateBalance(ctx context.Context, userID uint, balance decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.data.accounts[userID]
	if !ok {
		return ErrAccountNotFound
	}
	account.Balance = balance
	account.UpdatedAt = r.s.now()
	r.s.data.accounts[userID] = account
	return nil
}

type memoryTransactions struct{ s *MemoryStore }

func (r memoryTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.references[tx.Reference]; ok {
		return ErrDuplicateReference
	}
	r.s.data.nextTxID++
	tx.ID = r.s.data.nextTxID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = r.s.now()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = tx.CreatedAt
	}
	r.s.data.references[tx.Reference] = struct{}{}
	r.s.data.transactions = append(r.s.data.transactions, *tx)
	return nil
}

func (r memoryTransactions) SumCompleted(ctx context.Context, userID uint) (BalanceTotals, error) {
	if err := ctx.Err(); err != nil {
		return BalanceTotals{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	totals := BalanceTotals{Income: decimal.Zero, Outflow: decimal.Zero}
	for i := range r.s.data.transactions {
		tx := &r.s.data.transactions[i]
		if tx.UserID != userID || tx.Status != models.StatusCompleted {
			continue
		}
		switch {
		case tx.Type == models.TransactionTypeIncome:
			totals.Income = totals.Income.Add(tx.Amount)
		case tx.Type.IsOutflow():
			totals.Outflow = totals.Outflow.Add(tx.Amount)
		}
	}
	return totals, nil
}

func (r memoryTransactions) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	out := make([]models.Transaction, 0)
	for _, tx := range r.s.data.transactions {
		if matchesFilter(&tx, filter) {
			out = append(out, tx)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []models.Transaction{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesFilter(tx *models.Transaction, f TransactionFilter) bool {
	if f.UserID != 0 && tx.UserID != f.UserID {
		return false
	}
	if f.Since != nil && tx.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !tx.Timestamp.Before(*f.Until) {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, st := range f.Statuses {
			if tx.Status == st {
				return true
			}
		}
		return false
	}
	return true
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.data.users {
		if user.Email != "" && u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	r.s.data.nextUserID++
	user.ID = r.s.data.nextUserID
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.data.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.data.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.data.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r memoryUsers) List(ctx context.Context, limit int) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	users := make([]models.User, 0, len(r.s.data.users))
	for _, u := range r.s.data.users {
		users = append(users, u)
	}
	r.s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}
