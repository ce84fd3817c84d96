package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, page, perPage int) ([]UserRecord, int, error)
	Create(ctx context.Context, u *UserRecord) (*UserRecord, error)
	Update(ctx context.Context, u *UserRecord) error
	// DeleteByIDAndEmail deletes the row matching both id and email and
	// returns the number of affected rows.
	DeleteByIDAndEmail(ctx context.Context, id int64, email string) (int64, error)
	HasAdmin(ctx context.Context) (bool, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const userColumns = `id, username, password_hash, email, enabled, role, created, updated,
first_name, last_name, country, city, delivery_info`

func scanUser(row pgx.Row) (*UserRecord, error) {
	var u UserRecord
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Enabled, &role, &u.Created, &u.Updated,
		&u.FirstName, &u.LastName, &u.Country, &u.City, &u.DeliveryInfo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (r *PgUserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// List returns a page of users ordered by id and the total row count.
func (r *PgUserRepository) List(ctx context.Context, page, perPage int) ([]UserRecord, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]UserRecord, 0, perPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *u)
	}
	return items, total, rows.Err()
}

func (r *PgUserRepository) Create(ctx context.Context, u *UserRecord) (*UserRecord, error) {
	const q = `INSERT INTO users (username, password_hash, email, enabled, role,
first_name, last_name, country, city, delivery_info)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, q, u.Username, u.PasswordHash, u.Email, u.Enabled, string(u.Role),
		u.FirstName, u.LastName, u.Country, u.City, u.DeliveryInfo))
}

// Update rewrites the mutable columns of an existing user inside a
// transaction. Failures are returned as *TxError.
func (r *PgUserRepository) Update(ctx context.Context, u *UserRecord) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		const q = `UPDATE users SET username=$1, password_hash=$2, email=$3,
first_name=$4, last_name=$5, country=$6, city=$7, delivery_info=$8, updated=now()
WHERE id=$9`
		tag, err := tx.Exec(ctx, q, u.Username, u.PasswordHash, u.Email,
			u.FirstName, u.LastName, u.Country, u.City, u.DeliveryInfo, u.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return &TxError{Op: fmt.Sprintf("update user %d", u.ID), Err: err}
	}
	return nil
}

func (r *PgUserRepository) DeleteByIDAndEmail(ctx context.Context, id int64, email string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1 AND email=$2`, id, email)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM users WHERE role='ADMIN' LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
