package watchlist

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
)

// Item is one watched symbol for one user.
type Item struct {
	ID      int64     `json:"id"`
	UserID  string    `json:"userId"`
	Symbol  string    `json:"symbol"`
	Company string    `json:"company"`
	AddedAt time.Time `json:"addedAt"`
}

// Repository handles watchlist persistence
type Repository struct {
	db  *sql.DB
	qb  sq.StatementBuilderType
	log zerolog.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		qb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log: log.With().Str("repo", "watchlist").Logger(),
	}
}

// Add stores a symbol on a user's watchlist. Adding a symbol that is
// already present is a no-op.
func (r *Repository) Add(userID, symbol, company string) error {
	query, args, err := r.qb.
		Insert("watchlist_items").
		Options("OR IGNORE").
		Columns("user_id", "symbol", "company", "added_at").
		Values(userID, symbol, company, time.Now().UTC().Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build watchlist insert: %w", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert watchlist item: %w", err)
	}

	return nil
}

// Remove deletes a symbol from a user's watchlist.
func (r *Repository) Remove(userID, symbol string) error {
	query, args, err := r.qb.
		Delete("watchlist_items").
		Where(sq.Eq{"user_id": userID, "symbol": symbol}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build watchlist delete: %w", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}

	return nil
}

// List returns all items on a user's watchlist, newest first.
func (r *Repository) List(userID string) ([]Item, error) {
	query, args, err := r.qb.
		Select("id", "user_id", "symbol", "company", "added_at").
		From("watchlist_items").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("added_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build watchlist query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var addedAt string
		if err := rows.Scan(&item.ID, &item.UserID, &item.Symbol, &item.Company, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		if item.AddedAt, err = time.Parse(time.RFC3339, addedAt); err != nil {
			return nil, fmt.Errorf("failed to parse added_at: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}

	return items, nil
}

// SymbolsForUser returns the watchlist symbols for the user with the
// given email. An unknown email yields an empty list, not an error.
func (r *Repository) SymbolsForUser(email string) ([]string, error) {
	if email == "" {
		return nil, nil
	}

	query, args, err := r.qb.
		Select("w.symbol").
		From("watchlist_items w").
		Join("users u ON u.id = w.user_id").
		Where(sq.Eq{"u.email": email}).
		OrderBy("w.symbol ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build symbols query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}
