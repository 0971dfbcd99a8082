package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/freshfast/foodhub/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// Create は注文と明細を同一トランザクションで作成する。
// 明細の順序はLines内の並び順のまま保存される。
func (r *PostgresOrderRepo) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, user_email, name, phone, address, area, delivery_time, payment_method, total, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		order.ID, order.UserID, order.UserEmail,
		order.Delivery.Name, order.Delivery.Phone, order.Delivery.Address,
		order.Delivery.Area, order.Delivery.DeliveryTime, order.Delivery.PaymentMethod,
		order.Total, order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, line := range order.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, product_id, name, unit_price, quantity, image_url, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, line.ProductID, line.Name, line.UnitPrice, line.Quantity, line.ImageURL, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByID は指定IDの注文を明細付きで取得する。見つからない場合はnilを返す。
func (r *PostgresOrderRepo) FindByID(ctx context.Context, id string) (*model.Order, error) {
	order := &model.Order{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, user_email, name, phone, address, area, delivery_time, payment_method, total, status, created_at, updated_at
		 FROM orders WHERE id = $1`,
		id,
	).Scan(
		&order.ID, &order.UserID, &order.UserEmail,
		&order.Delivery.Name, &order.Delivery.Phone, &order.Delivery.Address,
		&order.Delivery.Area, &order.Delivery.DeliveryTime, &order.Delivery.PaymentMethod,
		&order.Total, &order.Status, &order.CreatedAt, &order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	lines, err := r.loadLines(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[order.ID]

	return order, nil
}

// ListByUserID はユーザーの注文一覧を作成日時降順・明細付きで取得する。
func (r *PostgresOrderRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	return r.list(ctx,
		`SELECT id, user_id, user_email, name, phone, address, area, delivery_time, payment_method, total, status, created_at, updated_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// ListAll は全注文を作成日時降順・明細付きで取得する。管理画面用。
// statusが空でない場合はそのステータスに絞り込む。
func (r *PostgresOrderRepo) ListAll(ctx context.Context, status model.OrderStatus) ([]*model.Order, error) {
	if status == "" {
		return r.list(ctx,
			`SELECT id, user_id, user_email, name, phone, address, area, delivery_time, payment_method, total, status, created_at, updated_at
			 FROM orders ORDER BY created_at DESC`,
		)
	}
	return r.list(ctx,
		`SELECT id, user_id, user_email, name, phone, address, area, delivery_time, payment_method, total, status, created_at, updated_at
		 FROM orders WHERE status = $1 ORDER BY created_at DESC`,
		status,
	)
}

// UpdateStatus は注文のステータスを更新する。
func (r *PostgresOrderRepo) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}

// list は注文クエリを実行し、明細をまとめて読み込んで返す。
func (r *PostgresOrderRepo) list(ctx context.Context, query string, args ...any) ([]*model.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	var ids []string
	for rows.Next() {
		order := &model.Order{}
		if err := rows.Scan(
			&order.ID, &order.UserID, &order.UserEmail,
			&order.Delivery.Name, &order.Delivery.Phone, &order.Delivery.Address,
			&order.Delivery.Area, &order.Delivery.DeliveryTime, &order.Delivery.PaymentMethod,
			&order.Total, &order.Status, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Lines = lines[order.ID]
	}

	return orders, nil
}

// loadLines は複数注文の明細をposition昇順でまとめて取得する。
func (r *PostgresOrderRepo) loadLines(ctx context.Context, orderIDs []string) (map[string][]model.CartLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, product_id, name, unit_price, quantity, image_url
		 FROM order_lines
		 WHERE order_id::text = ANY($1)
		 ORDER BY order_id, position`,
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[string][]model.CartLine)
	for rows.Next() {
		var orderID string
		var line model.CartLine
		if err := rows.Scan(&orderID, &line.ProductID, &line.Name, &line.UnitPrice, &line.Quantity, &line.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines[orderID] = append(lines[orderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order lines: %w", err)
	}

	return lines, nil
}

// compile-time interface check
var _ OrderRepository = (*PostgresOrderRepo)(nil)
