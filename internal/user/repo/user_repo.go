package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/entity"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// userRow mirrors the select lists below; campaigns is aggregated from the
// campaigns table in creation order.
type userRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Country      string         `db:"country"`
	CapitalCity  string         `db:"capital_city"`
	PhoneNumber  string         `db:"phone_number"`
	Campaigns    pq.StringArray `db:"campaigns"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r userRow) toEntity() *entity.User {
	return &entity.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Country:      r.Country,
		CapitalCity:  r.CapitalCity,
		PhoneNumber:  r.PhoneNumber,
		Campaigns:    []string(r.Campaigns),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

const selectUser = `SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name,
		u.country, u.capital_city, u.phone_number,
		ARRAY(SELECT c.id FROM campaigns c WHERE c.creator_id = u.id ORDER BY c.created_at, c.id) AS campaigns,
		u.created_at, u.updated_at
	FROM users u`

// Create inserts a new user row. The caller assigns ID and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, email, password_hash, first_name, last_name, country, capital_city, phone_number, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :first_name, :last_name, :country, :capital_city, :phone_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, u); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetByEmail returns the user registered under email or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, selectUser+` WHERE u.email = $1`, email); err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, selectUser+` WHERE u.id = $1`, id); err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}
