package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

// Fixed width so that text ordering matches chronological ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// orderRepository implements domain.OrderRepository
type orderRepository struct {
	db *DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *DB) domain.OrderRepository {
	return &orderRepository{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create creates a new order together with its split items
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	row, err := encodeOrder(order)
	if err != nil {
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := r.db.Rebind(`
		INSERT INTO orders (id, total_amount, status, created_at, updated_at,
			extracted_records, execution_totals, is_execution_registered)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	_, err = dbTx.ExecContext(ctx, query,
		order.ID,
		order.TotalAmount,
		string(order.Status),
		row.createdAt,
		row.updatedAt,
		row.records,
		row.totals,
		order.IsExecutionRegistered,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err := r.insertItems(ctx, dbTx, order); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order and its split items
func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := r.db.Rebind(`
		SELECT id, total_amount, status, created_at, updated_at,
			extracted_records, execution_totals, is_execution_registered
		FROM orders
		WHERE id = $1
	`)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get order %s: %w", id, domain.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID: %w", err)
	}

	itemsQuery := r.db.Rebind(`
		SELECT order_id, id, value, link_url, is_paid
		FROM split_items
		WHERE order_id = $1
		ORDER BY position
	`)
	rows, err := r.db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query split items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	order.Links = items[id]

	return order, nil
}

// List retrieves all orders, newest first
func (r *orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	query := `
		SELECT id, total_amount, status, created_at, updated_at,
			extracted_records, execution_totals, is_execution_registered
		FROM orders
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	rows.Close()

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, value, link_url, is_paid
		FROM split_items
		ORDER BY order_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query split items: %w", err)
	}
	defer itemRows.Close()

	items, err := scanItems(itemRows)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Links = items[order.ID]
	}

	return orders, nil
}

// Update replaces the stored state of an existing order
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	row, err := encodeOrder(order)
	if err != nil {
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := r.db.Rebind(`
		UPDATE orders
		SET total_amount = $1, status = $2, updated_at = $3,
			extracted_records = $4, execution_totals = $5, is_execution_registered = $6
		WHERE id = $7
	`)
	result, err := dbTx.ExecContext(ctx, query,
		order.TotalAmount,
		string(order.Status),
		row.updatedAt,
		row.records,
		row.totals,
		order.IsExecutionRegistered,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if err := requireRow(result, order.ID); err != nil {
		return err
	}

	if err := r.deleteItems(ctx, dbTx, order.ID); err != nil {
		return err
	}
	if err := r.insertItems(ctx, dbTx, order); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes an order and its split items
func (r *orderRepository) Delete(ctx context.Context, id string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	result, err := r.deleteOrder(ctx, dbTx, id)
	if err != nil {
		return err
	}
	if err := requireRow(result, id); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteMany removes several orders in one transaction; unknown ids are skipped
func (r *orderRepository) DeleteMany(ctx context.Context, ids []string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	for _, id := range ids {
		if _, err := r.deleteOrder(ctx, dbTx, id); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *orderRepository) deleteOrder(ctx context.Context, tx execer, id string) (sql.Result, error) {
	if err := r.deleteItems(ctx, tx, id); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM orders WHERE id = $1`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete order: %w", err)
	}
	return result, nil
}

func (r *orderRepository) deleteItems(ctx context.Context, tx execer, orderID string) error {
	_, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM split_items WHERE order_id = $1`), orderID)
	if err != nil {
		return fmt.Errorf("failed to delete split items: %w", err)
	}
	return nil
}

func (r *orderRepository) insertItems(ctx context.Context, tx execer, order *domain.Order) error {
	query := r.db.Rebind(`
		INSERT INTO split_items (order_id, id, position, value, link_url, is_paid)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	for i, item := range order.Links {
		_, err := tx.ExecContext(ctx, query,
			order.ID,
			item.ID,
			i,
			item.Value,
			item.LinkURL,
			item.IsPaid,
		)
		if err != nil {
			return fmt.Errorf("failed to create split item: %w", err)
		}
	}
	return nil
}

func requireRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
	}
	return nil
}

// orderRow holds the column values that need encoding
type orderRow struct {
	createdAt string
	updatedAt string
	records   string
	totals    sql.NullString
}

func encodeOrder(order *domain.Order) (orderRow, error) {
	records := order.ExtractedRecords
	if records == nil {
		records = []domain.ExtractedRecord{}
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return orderRow{}, fmt.Errorf("failed to encode extracted records: %w", err)
	}

	row := orderRow{
		createdAt: order.CreatedAt.UTC().Format(timeLayout),
		updatedAt: order.UpdatedAt.UTC().Format(timeLayout),
		records:   string(recordsJSON),
	}

	if order.ExecutionTotals != nil {
		totalsJSON, err := json.Marshal(order.ExecutionTotals)
		if err != nil {
			return orderRow{}, fmt.Errorf("failed to encode execution totals: %w", err)
		}
		row.totals = sql.NullString{String: string(totalsJSON), Valid: true}
	}

	return row, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var order domain.Order
	var createdAt, updatedAt, records string
	var totals sql.NullString

	err := s.Scan(
		&order.ID,
		&order.TotalAmount,
		&order.Status,
		&createdAt,
		&updatedAt,
		&records,
		&totals,
		&order.IsExecutionRegistered,
	)
	if err != nil {
		return nil, err
	}

	if order.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if order.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if err := json.Unmarshal([]byte(records), &order.ExtractedRecords); err != nil {
		return nil, fmt.Errorf("failed to decode extracted records: %w", err)
	}
	if len(order.ExtractedRecords) == 0 {
		order.ExtractedRecords = nil
	}

	if totals.Valid {
		var t domain.CurrencyTotals
		if err := json.Unmarshal([]byte(totals.String), &t); err != nil {
			return nil, fmt.Errorf("failed to decode execution totals: %w", err)
		}
		order.ExecutionTotals = &t
	}

	return &order, nil
}

// scanItems groups split item rows by order id, keeping row order
func scanItems(rows *sql.Rows) (map[string][]domain.SplitItem, error) {
	items := make(map[string][]domain.SplitItem)
	for rows.Next() {
		var orderID string
		var item domain.SplitItem
		if err := rows.Scan(&orderID, &item.ID, &item.Value, &item.LinkURL, &item.IsPaid); err != nil {
			return nil, fmt.Errorf("failed to scan split item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating split items: %w", err)
	}
	return items, nil
}
