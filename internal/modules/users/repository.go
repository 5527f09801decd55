package users

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository is the user directory. The workflow engine treats it as
// a read-only collaborator; writes come from the signup surface.
type Repository struct {
	db  *sql.DB
	qb  sq.StatementBuilderType
	log zerolog.Logger
}

// NewRepository creates a new user repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		qb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log: log.With().Str("repo", "users").Logger(),
	}
}

// Create inserts a new user. An empty ID is filled with a fresh UUID.
func (r *Repository) Create(user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.qb.
		Insert("users").
		Columns("id", "email", "name", "country", "investment_goals", "risk_tolerance", "preferred_industry", "created_at").
		Values(user.ID, user.Email, user.Name, user.Country, user.InvestmentGoals, user.RiskTolerance, user.PreferredIndustry, user.CreatedAt.Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert: %w", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByEmail returns a user by email, or nil if not found.
func (r *Repository) GetByEmail(email string) (*User, error) {
	query, args, err := r.qb.
		Select("id", "email", "name", "country", "investment_goals", "risk_tolerance", "preferred_industry", "created_at").
		From("users").
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	var user User
	var createdAt string
	err = r.db.QueryRow(query, args...).Scan(
		&user.ID, &user.Email, &user.Name, &user.Country,
		&user.InvestmentGoals, &user.RiskTolerance, &user.PreferredIndustry,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if user.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &user, nil
}

// ListForDigest returns every user eligible for the news email:
// non-empty email and name, projected to the fields the workflow
// needs downstream.
func (r *Repository) ListForDigest() ([]DigestUser, error) {
	query, args, err := r.qb.
		Select("id", "email", "name").
		From("users").
		Where(sq.And{sq.NotEq{"email": ""}, sq.NotEq{"name": ""}}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build digest query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query digest users: %w", err)
	}
	defer rows.Close()

	var out []DigestUser
	for rows.Next() {
		var u DigestUser
		if err := rows.Scan(&u.ID, &u.Email, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan digest user: %w", err)
		}
		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating digest users: %w", err)
	}

	return out, nil
}
