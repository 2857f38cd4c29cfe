package values

import (
	"context"
	"database/sql"
)

const createValuesTable = "CREATE TABLE IF NOT EXISTS values (number INT)"

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createValuesTable)

	return err
}

func (r *PostgresRepo) InsertValue(ctx context.Context, number int) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO values (number) VALUES ($1)", number)

	return err
}

func (r *PostgresRepo) AllValues(ctx context.Context) (values []StoredValue, err error) {
	rows, err := r.db.QueryContext(ctx, "SELECT number FROM values")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var value StoredValue
		if err := rows.Scan(&value.Number); err != nil {
			return nil, err
		}
		values = append(values, value)
	}

	return values, rows.Err()
}
