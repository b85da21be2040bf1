package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_name, customer_email, customer_mobile, shipping_address,
			subtotal, shipping_cost, total_amount, status,
			gateway_order_id, gateway_payment_id, logistics_id, courier_name,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		order.ID, order.CustomerName, order.CustomerEmail, order.CustomerMobile, addressJSON,
		order.Subtotal, order.ShippingCost, order.TotalAmount, string(order.Status),
		order.GatewayOrderID, order.GatewayPaymentID, order.LogisticsID, order.CourierName,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, name, quantity, price, size, image_url, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9)
		`,
			item.ID, order.ID, item.ProductID, item.Name, item.Qty, item.Price,
			item.Size, item.ImageURL, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, customer_name, customer_email, customer_mobile, shipping_address,
		       subtotal, shipping_cost, total_amount, status,
		       gateway_order_id, gateway_payment_id, logistics_id, courier_name,
		       created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) ListByEmail(email string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, customer_name, customer_email, customer_mobile, shipping_address,
		       subtotal, shipping_cost, total_amount, status,
		       gateway_order_id, gateway_payment_id, logistics_id, courier_name,
		       created_at, updated_at
		FROM orders
		WHERE customer_email = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", email, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, email)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		items, err := r.loadItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) SetGatewayOrder(orderID, gatewayOrderID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET gateway_order_id = $1,
		    updated_at = $2
		WHERE id = $3
	`, gatewayOrderID, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("set gateway order id: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

// ReservedQty суммирует позиции Pending Payment заказов внутри окна резервирования.
// Пустой size с любой стороны сравнения — wildcard.
func (r *orderRepository) ReservedQty(productID, size string, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var reserved int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id = $1
		  AND o.status = $2
		  AND o.created_at >= $3
		  AND ($4 = '' OR oi.size IS NULL OR oi.size = $4)
	`, productID, string(domain.OrderStatusPendingPayment), since, size).Scan(&reserved)
	if err != nil {
		return 0, fmt.Errorf("sum reserved qty: %w", err)
	}

	return reserved, nil
}

// ConfirmPayment выполняет идемпотентную промоцию заказа и списание стока
// в одной транзакции. Условный UPDATE по статусу — единственный
// compare-and-swap системы: ровно одна доставка вебхука может увидеть
// affected > 0, повторные доставки получают promoted=false.
func (r *orderRepository) ConfirmPayment(conf domain.PaymentConfirmation) (promoted bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    gateway_payment_id = $2,
		    gateway_order_id = CASE WHEN gateway_order_id = '' THEN $3 ELSE gateway_order_id END,
		    customer_mobile = CASE WHEN customer_mobile = '' THEN $4 ELSE customer_mobile END,
		    updated_at = $5
		WHERE id = $6
		  AND status = $7
	`,
		string(domain.OrderStatusPaymentConfirmed),
		conf.GatewayPaymentID,
		conf.GatewayOrderID,
		conf.CustomerMobile,
		time.Now().UTC(),
		conf.OrderID,
		string(domain.OrderStatusPendingPayment),
	)
	if err != nil {
		return false, fmt.Errorf("promote order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Повторная доставка: заказ уже подтверждён (или не существует).
		// Сток не трогаем, транзакцию завершаем без изменений.
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("commit replay: %w", err)
		}
		return false, nil
	}

	items, err := r.loadItemsTx(ctx, tx, conf.OrderID)
	if err != nil {
		return false, err
	}

	for _, item := range items {
		// Сначала вариант (если есть), затем агрегат; декремент прижат к нулю
		// как защитный пол, а не основной механизм корректности.
		if item.Size != "" {
			if _, err = tx.ExecContext(ctx, `
				UPDATE product_variants
				SET stock = GREATEST(stock - $1, 0)
				WHERE product_id = $2 AND size = $3
			`, item.Qty, item.ProductID, item.Size); err != nil {
				return false, fmt.Errorf("decrement variant stock: %w", err)
			}
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock = GREATEST(stock - $1, 0)
			WHERE id = $2
		`, item.Qty, item.ProductID); err != nil {
			return false, fmt.Errorf("decrement product stock: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit confirm payment: %w", err)
	}

	return true, nil
}

func (r *orderRepository) UpdateStatus(orderID string, next domain.OrderStatus, logisticsID, courierName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("select order status: %w", err)
	}

	if !domain.OrderStatus(current).CanTransitionTo(next) {
		err = domain.ErrStatusTransitionInvalid
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    logistics_id = CASE WHEN $2 <> '' THEN $2 ELSE logistics_id END,
		    courier_name = CASE WHEN $3 <> '' THEN $3 ELSE courier_name END,
		    updated_at = $4
		WHERE id = $5
	`, string(next), logisticsID, courierName, time.Now().UTC(), orderID); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update status: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepository) scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order       domain.Order
		status      string
		addressJSON []byte
	)

	if err := row.Scan(
		&order.ID, &order.CustomerName, &order.CustomerEmail, &order.CustomerMobile, &addressJSON,
		&order.Subtotal, &order.ShippingCost, &order.TotalAmount, &status,
		&order.GatewayOrderID, &order.GatewayPaymentID, &order.LogisticsID, &order.CourierName,
		&order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	if len(addressJSON) > 0 {
		if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}

	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, name, quantity, price, COALESCE(size, ''), image_url, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *orderRepository) loadItemsTx(ctx context.Context, tx *sql.Tx, orderID string) ([]domain.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, product_id, name, quantity, price, COALESCE(size, ''), image_url, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.Name, &item.Qty,
			&item.Price, &item.Size, &item.ImageURL, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
