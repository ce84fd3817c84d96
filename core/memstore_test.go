package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// memUserRepository is an in-memory UserRepository for tests. Like the users
// table it enforces a unique email.
type memUserRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]UserRecord
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{rows: map[int64]UserRecord{}}
}

func duplicateEmail(email string) error {
	return &pgconn.PgError{
		Code:           "23505",
		Message:        `duplicate key value violates unique constraint "users_email_key"`,
		Detail:         fmt.Sprintf("Key (email)=(%s) already exists.", email),
		ConstraintName: "users_email_key",
	}
}

func (m *memUserRepository) emailTaken(email string, except int64) bool {
	for id, u := range m.rows {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (m *memUserRepository) FindByID(_ context.Context, id int64) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &u, nil
}

func (m *memUserRepository) FindByEmail(_ context.Context, email string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (m *memUserRepository) ExistsByID(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok, nil
}

func (m *memUserRepository) List(_ context.Context, page, perPage int) ([]UserRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	start := (page - 1) * perPage
	items := []UserRecord{}
	for i := start; i < len(ids) && i < start+perPage; i++ {
		items = append(items, m.rows[ids[i]])
	}
	return items, len(ids), nil
}

func (m *memUserRepository) Create(_ context.Context, u *UserRecord) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(u.Email, 0) {
		return nil, duplicateEmail(u.Email)
	}
	m.nextID++
	row := *u
	row.ID = m.nextID
	row.Created = time.Now()
	row.Updated = row.Created
	m.rows[row.ID] = row
	return &row, nil
}

func (m *memUserRepository) Update(_ context.Context, u *UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[u.ID]; !ok {
		return &TxError{Op: "update", Err: ErrRecordNotFound}
	}
	if m.emailTaken(u.Email, u.ID) {
		return &TxError{Op: "update", Err: duplicateEmail(u.Email)}
	}
	row := *u
	row.Updated = time.Now()
	m.rows[u.ID] = row
	return nil
}

func (m *memUserRepository) DeleteByIDAndEmail(_ context.Context, id int64, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok || u.Email != email {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *memUserRepository) HasAdmin(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Role == RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}
