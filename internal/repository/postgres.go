// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/inventory-system/internal/audit"
	"github.com/mmeshcher/inventory-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrAccountExists возвращается при попытке создать учётную запись с уже занятым email.
var (
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound возвращается, если учётная запись не найдена.
	ErrAccountNotFound = errors.New("account not found")
	// ErrItemNotFound возвращается, если складская позиция не найдена.
	ErrItemNotFound = errors.New("stock item not found")
	// ErrItemInUse возвращается при попытке удалить товар, на который ссылаются заказы.
	ErrItemInUse = errors.New("stock item is referenced by orders")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientStock возвращается при попытке зарезервировать больше, чем есть на складе.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidAdjustment возвращается, если ручная корректировка увела бы остаток в минус.
	ErrInvalidAdjustment = errors.New("adjustment would make stock negative")
	// ErrInvalidTransition возвращается при недопустимом переходе статуса заказа.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// StockTable выбирает одну из двух складских таблиц. Обе таблицы подчиняются
// одному контракту остатков и обрабатываются одним и тем же кодом.
type StockTable int

const (
	// StockProducts — готовая продукция (products.quantity).
	StockProducts StockTable = iota
	// StockInventory — сырьё (inventory.current_stock).
	StockInventory
)

type stockColumns struct {
	table  string
	qtyCol string
}

func (t StockTable) columns() (stockColumns, error) {
	switch t {
	case StockProducts:
		return stockColumns{table: "products", qtyCol: "quantity"}, nil
	case StockInventory:
		return stockColumns{table: "inventory", qtyCol: "current_stock"}, nil
	}
	return stockColumns{}, fmt.Errorf("unknown stock table %d", t)
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при конфликтах сериализации и дедлоках.
// Условные записи безопасно повторять: неуспешная попытка откатывается целиком.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewConstant(time.Second))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
		}

		return err
	})
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateAccount создаёт новую учётную запись.
func (r *PostgresRepository) CreateAccount(ctx context.Context, username, email string, passwordHash []byte, role model.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, usertype) VALUES ($1, $2, $3, $4) RETURNING id`,
		username, email, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrAccountExists, email)
		}
		return 0, fmt.Errorf("create account: %w", err)
	}
	return id, nil
}

// GetAccountByEmail возвращает учётную запись по адресу электронной почты.
func (r *PostgresRepository) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, usertype, failed_login_attempts, locked_until, last_failed_login, created_at
		 FROM users WHERE email = $1`,
		email,
	)

	var a model.Account
	var role string
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role,
		&a.FailedLoginAttempts, &a.LockedUntil, &a.LastFailedLogin, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	a.Role = model.Role(role)

	return &a, nil
}

// DeleteAccount удаляет учётную запись.
func (r *PostgresRepository) DeleteAccount(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ResetLoginFailures сбрасывает счётчик неудачных входов и снимает блокировку.
func (r *PostgresRepository) ResetLoginFailures(ctx context.Context, accountID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL WHERE id = $1`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}

// RecordLoginFailure атомарно инкрементирует счётчик неудачных входов и,
// если новое значение достигло порога, выставляет время окончания блокировки.
// Инкремент и сравнение с порогом выполняются одним оператором, чтобы два
// одновременных неудачных входа не проскочили порог без установки блокировки.
func (r *PostgresRepository) RecordLoginFailure(ctx context.Context, accountID int64, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	var attempts int
	var lockedUntil *time.Time

	err := r.withRetry(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx,
			`UPDATE users
			 SET failed_login_attempts = failed_login_attempts + 1,
			     last_failed_login = now(),
			     locked_until = CASE
			         WHEN failed_login_attempts + 1 >= $2 THEN now() + $3
			         ELSE locked_until
			     END
			 WHERE id = $1
			 RETURNING failed_login_attempts, locked_until`,
			accountID, threshold, lockFor,
		).Scan(&attempts, &lockedUntil)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrAccountNotFound
		}
		return 0, nil, fmt.Errorf("record login failure: %w", err)
	}

	return attempts, lockedUntil, nil
}

// ConsumeFailedLoginNotice возвращает время последнего неудачного входа и
// одновременно очищает его, чтобы уведомление показывалось ровно один раз.
// Возвращает nil, если уведомления нет.
func (r *PostgresRepository) ConsumeFailedLoginNotice(ctx context.Context, accountID int64) (*time.Time, error) {
	var lastFailed time.Time
	err := r.pool.QueryRow(ctx,
		`UPDATE users u
		 SET last_failed_login = NULL
		 FROM (SELECT id, last_failed_login FROM users WHERE id = $1 FOR UPDATE) prev
		 WHERE u.id = prev.id AND prev.last_failed_login IS NOT NULL
		 RETURNING prev.last_failed_login`,
		accountID,
	).Scan(&lastFailed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume failed login notice: %w", err)
	}

	return &lastFailed, nil
}

// CreateStockItem добавляет позицию в указанную складскую таблицу.
func (r *PostgresRepository) CreateStockItem(ctx context.Context, table StockTable, name string, quantity int64, supplier string) (int64, error) {
	cols, err := table.columns()
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (product_name, %s, inbound_qty, supplier, last_restocked)
		 VALUES ($1, $2, $2, $3, now()) RETURNING id`, cols.table, cols.qtyCol),
		name, quantity, supplier,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create stock item: %w", err)
	}
	return id, nil
}

// GetStockItem возвращает складскую позицию по идентификатору.
func (r *PostgresRepository) GetStockItem(ctx context.Context, table StockTable, id int64) (*model.StockItem, error) {
	cols, err := table.columns()
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, product_name, %s, inbound_qty, outbound_qty, supplier, last_restocked, created_at
		 FROM %s WHERE id = $1`, cols.qtyCol, cols.table),
		id,
	)

	var item model.StockItem
	err = row.Scan(&item.ID, &item.Name, &item.Quantity, &item.InboundQty, &item.OutboundQty,
		&item.Supplier, &item.LastRestocked, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}

	return &item, nil
}

// ListStockItems возвращает все позиции указанной складской таблицы.
func (r *PostgresRepository) ListStockItems(ctx context.Context, table StockTable) ([]model.StockItem, error) {
	cols, err := table.columns()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, product_name, %s, inbound_qty, outbound_qty, supplier, last_restocked, created_at
		 FROM %s ORDER BY product_name`, cols.qtyCol, cols.table),
	)
	if err != nil {
		return nil, fmt.Errorf("select stock items: %w", err)
	}
	defer rows.Close()

	var items []model.StockItem
	for rows.Next() {
		var item model.StockItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.InboundQty, &item.OutboundQty,
			&item.Supplier, &item.LastRestocked, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// ReserveStock атомарно списывает количество со склада. Проверка остатка и
// списание выполняются одним условным UPDATE, чтобы два одновременных резерва
// не прошли проверку по одному и тому же остатку.
func (r *PostgresRepository) ReserveStock(ctx context.Context, table StockTable, id, quantity int64) error {
	cols, err := table.columns()
	if err != nil {
		return err
	}

	var cmdTag pgconn.CommandTag
	err = r.withRetry(ctx, func(ctx context.Context) error {
		var execErr error
		cmdTag, execErr = r.pool.Exec(ctx,
			fmt.Sprintf(`UPDATE %s
			 SET %[2]s = %[2]s - $2, outbound_qty = outbound_qty + $2
			 WHERE id = $1 AND %[2]s >= $2`, cols.table, cols.qtyCol),
			id, quantity,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		item, getErr := r.GetStockItem(ctx, table, id)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: available %d, requested %d", ErrInsufficientStock, item.Quantity, quantity)
	}

	return nil
}

// ReleaseStock возвращает количество на склад. Операция безусловная;
// дедупликацию обеспечивает вызывающая сторона переходом статуса заказа.
func (r *PostgresRepository) ReleaseStock(ctx context.Context, table StockTable, id, quantity int64) error {
	cols, err := table.columns()
	if err != nil {
		return err
	}

	cmdTag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s
		 SET %[2]s = %[2]s + $2, inbound_qty = inbound_qty + $2
		 WHERE id = $1`, cols.table, cols.qtyCol),
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

// UpdateStockItemInfo изменяет название и поставщика позиции.
// Остаток этим путём не меняется: для него есть AdjustStock.
func (r *PostgresRepository) UpdateStockItemInfo(ctx context.Context, table StockTable, id int64, name, supplier string) error {
	cols, err := table.columns()
	if err != nil {
		return err
	}

	cmdTag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET product_name = $2, supplier = $3 WHERE id = $1`, cols.table),
		id, name, supplier,
	)
	if err != nil {
		return fmt.Errorf("update stock item: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

// DeleteStockItem удаляет складскую позицию. Товар, на который ссылаются
// заказы, удалить нельзя: история заказов сохраняется.
func (r *PostgresRepository) DeleteStockItem(ctx context.Context, table StockTable, id int64) error {
	cols, err := table.columns()
	if err != nil {
		return err
	}

	cmdTag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, cols.table),
		id,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: item %d", ErrItemInUse, id)
		}
		return fmt.Errorf("delete stock item: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

// AdjustStock выполняет ручную корректировку остатка на delta единиц.
// Корректировка, уводящая остаток в минус, отклоняется без изменения состояния.
func (r *PostgresRepository) AdjustStock(ctx context.Context, table StockTable, id, delta int64, restockedAt time.Time) error {
	cols, err := table.columns()
	if err != nil {
		return err
	}

	var cmdTag pgconn.CommandTag
	err = r.withRetry(ctx, func(ctx context.Context) error {
		var execErr error
		cmdTag, execErr = r.pool.Exec(ctx,
			fmt.Sprintf(`UPDATE %s
			 SET %[2]s = %[2]s + $2,
			     inbound_qty = inbound_qty + GREATEST($2, 0),
			     outbound_qty = outbound_qty + GREATEST(-$2, 0),
			     last_restocked = $3
			 WHERE id = $1 AND %[2]s + $2 >= 0`, cols.table, cols.qtyCol),
			id, delta, restockedAt,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		item, getErr := r.GetStockItem(ctx, table, id)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: current %d, delta %d", ErrInvalidAdjustment, item.Quantity, delta)
	}

	return nil
}

// CreateOrder сохраняет новый заказ в статусе Pending и возвращает его идентификатор.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO orders (product_id, quantity, total_amount, status, payment_method, customer_name)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		o.ProductID, o.Quantity, o.AmountCents, string(model.OrderStatusPending), o.PaymentMethod, o.CustomerName,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	return id, nil
}

// GetOrderByID возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, product_id, quantity, total_amount, status, payment_method, customer_name, created_at
		 FROM orders WHERE id = $1`,
		id,
	)

	var o model.Order
	var status string
	err := row.Scan(&o.ID, &o.ProductID, &o.Quantity, &o.AmountCents, &status,
		&o.PaymentMethod, &o.CustomerName, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Status = model.OrderStatus(status)

	return &o, nil
}

// ListOrders возвращает заказы: сначала все Pending, внутри статуса — новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, quantity, total_amount, status, payment_method, customer_name, created_at
		 FROM orders
		 ORDER BY CASE WHEN status = $1 THEN 0 ELSE 1 END, created_at DESC`,
		string(model.OrderStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var status string
		if err := rows.Scan(&o.ID, &o.ProductID, &o.Quantity, &o.AmountCents, &status,
			&o.PaymentMethod, &o.CustomerName, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus переводит заказ из статуса from в статус to. Переход
// выполняется условным UPDATE по ожидаемому текущему статусу, поэтому из двух
// одновременных переходов выигрывает ровно один.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) error {
	var cmdTag pgconn.CommandTag
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var execErr error
		cmdTag, execErr = r.pool.Exec(ctx,
			`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`,
			id, string(from), string(to),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		o, getErr := r.GetOrderByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, o.Status)
	}

	return nil
}

// SaveAuditEvent сохраняет событие журнала безопасности.
func (r *PostgresRepository) SaveAuditEvent(ctx context.Context, e audit.Event) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO security_logs (event_type, account_id, actor, details, success, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.Type), e.ActorID, e.ActorLabel, e.Details, e.Success, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}
