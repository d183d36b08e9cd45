package infrastructure

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"orderflow/internal/service/order/domain"
)

const mysqlDuplicateEntry = 1062

// OpenMySQL 打开 GORM 连接并配置连接池；DSN 会被强制开启 parseTime
func OpenMySQL(dsn string, maxOpen, maxIdle int, maxLifetime time.Duration) (*gorm.DB, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	db, err := gorm.Open(mysql.Open(cfg.FormatDSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)
	return db, nil
}

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现，也是订单的唯一权威存储
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	err := r.db.WithContext(ctx).Create(ToOrderModel(order)).Error
	if isDuplicate(err) {
		return fmt.Errorf("%w: %s", domain.ErrOrderExists, order.ID)
	}
	return err
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
		}
		return nil, err
	}
	return ToDomainOrder(&model), nil
}

// Update 整行写入，以 version 作为乐观锁条件
func (r *GormOrderRepository) Update(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	model := ToOrderModel(order)
	res := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&OrderModel{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, order.ID)
	}
	return fmt.Errorf("%w: order %s is no longer at version %d", domain.ErrConcurrentModification, order.ID, expectedVersion)
}

func (r *GormOrderRepository) ListByShop(ctx context.Context, shopID string, status domain.State) ([]*domain.Order, error) {
	q := r.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var models []OrderModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Order, 0, len(models))
	for i := range models {
		out = append(out, ToDomainOrder(&models[i]))
	}
	return out, nil
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysqldriver.MySQLError
	return stderrors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
