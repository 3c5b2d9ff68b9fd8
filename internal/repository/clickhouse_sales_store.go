package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"RapWatch/internal/domain/models"
	"RapWatch/internal/domain/repository"
)

// SalesSchema returns the DDL for the sales table. ReplacingMergeTree on
// (item_id, sale_id) collapses redelivered sales at merge time and FINAL
// hides duplicates that have not been merged yet.
func SalesSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.sales (
	item_id String,
	sale_id Int64,
	price Float64,
	ts DateTime('UTC')
) ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (item_id, sale_id)`, database),
	}
}

// ClickHouseSalesStore keeps sales in ClickHouse.
type ClickHouseSalesStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseSalesStore(db *sql.DB, database string) *ClickHouseSalesStore {
	return &ClickHouseSalesStore{db: db, table: database + ".sales"}
}

var _ repository.SalesStore = (*ClickHouseSalesStore)(nil)

func (s *ClickHouseSalesStore) StoreSales(ctx context.Context, sales []models.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	// clickhouse-go sends every row prepared inside one tx as a single block
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (item_id, sale_id, price, ts)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sale := range sales {
		if _, err := stmt.ExecContext(ctx, sale.ItemID, sale.SaleID, sale.Price, sale.Time()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append sale %d: %w", sale.SaleID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *ClickHouseSalesStore) PriceHistory(ctx context.Context, itemID string, from, to time.Time) ([]models.PricePoint, error) {
	q := fmt.Sprintf(`SELECT sale_id, price, ts FROM %s FINAL
WHERE item_id = ? AND ts >= ? AND ts <= ?
ORDER BY ts, sale_id`, s.table)

	rows, err := s.db.QueryContext(ctx, q, itemID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.SaleID, &p.Value, &p.Date); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *ClickHouseSalesStore) VolumeHistory(ctx context.Context, itemID string, from, to time.Time) ([]models.VolumePoint, error) {
	q := fmt.Sprintf(`SELECT toDate(ts) AS day, count() AS sales FROM %s FINAL
WHERE item_id = ? AND ts >= ? AND ts <= ?
GROUP BY day
ORDER BY day`, s.table)

	rows, err := s.db.QueryContext(ctx, q, itemID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query volume: %w", err)
	}
	defer rows.Close()

	var out []models.VolumePoint
	for rows.Next() {
		var (
			day   time.Time
			count uint64
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan volume: %w", err)
		}
		out = append(out, models.VolumePoint{Value: int64(count), Date: day.UTC()})
	}
	return out, rows.Err()
}

func (s *ClickHouseSalesStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
