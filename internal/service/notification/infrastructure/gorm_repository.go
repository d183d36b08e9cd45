package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"orderflow/internal/service/notification/domain"
	orderdomain "orderflow/internal/service/order/domain"
)

// NotificationModel 对应数据库中的 order_notifications 表
type NotificationModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	ShopID    string    `gorm:"type:varchar(64);not null;index:idx_shop_created,priority:1"`
	OrderID   string    `gorm:"type:varchar(64);not null;index"`
	Status    string    `gorm:"type:varchar(32);not null"`
	Message   string    `gorm:"type:varchar(255);not null"`
	Read      bool      `gorm:"column:is_read;not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime:false;index:idx_shop_created,priority:2"`
}

func (NotificationModel) TableName() string {
	return "order_notifications"
}

func toModel(n *domain.Notification) *NotificationModel {
	return &NotificationModel{
		ID:        n.ID,
		ShopID:    n.ShopID,
		OrderID:   n.OrderID,
		Status:    string(n.Status),
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func toDomain(m *NotificationModel) *domain.Notification {
	return &domain.Notification{
		ID:        m.ID,
		ShopID:    m.ShopID,
		OrderID:   m.OrderID,
		Status:    orderdomain.State(m.Status),
		Message:   m.Message,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}

// GormNotificationRepository 是收件箱的 GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	err := r.db.WithContext(ctx).Create(toModel(n)).Error
	if isDuplicate(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateNotification, n.ID)
	}
	return err
}

func (r *GormNotificationRepository) List(ctx context.Context, q domain.Query) ([]*domain.Notification, error) {
	db := r.db.WithContext(ctx).Where("shop_id = ?", q.ShopID)
	if q.Contains != "" {
		db = db.Where("LOWER(message) LIKE ?", "%"+escapeLike(strings.ToLower(q.Contains))+"%")
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	var models []NotificationModel
	if err := db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Notification, 0, len(models))
	for i := range models {
		out = append(out, toDomain(&models[i]))
	}
	return out, nil
}

func (r *GormNotificationRepository) MarkRead(ctx context.Context, shopID, id string) error {
	res := r.db.WithContext(ctx).Model(&NotificationModel{}).
		Where("id = ? AND shop_id = ?", id, shopID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.existsOrNotFound(ctx, shopID, id)
	}
	return nil
}

func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, shopID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&NotificationModel{}).
		Where("shop_id = ? AND is_read = ?", shopID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *GormNotificationRepository) Delete(ctx context.Context, shopID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND shop_id = ?", id, shopID).Delete(&NotificationModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotificationNotFound, id)
	}
	return nil
}

func (r *GormNotificationRepository) DeleteAll(ctx context.Context, shopID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("shop_id = ?", shopID).Delete(&NotificationModel{})
	return res.RowsAffected, res.Error
}

// existsOrNotFound 区分"已经是已读"与"不存在"，MySQL 对未改变的行返回 0
func (r *GormNotificationRepository) existsOrNotFound(ctx context.Context, shopID, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&NotificationModel{}).Where("id = ? AND shop_id = ?", id, shopID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotificationNotFound, id)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
