package infrastructure

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"orderflow/internal/service/order/domain"
)

// OrderModel 对应数据库中的 pickup_orders 表，每个订单一行，
// 购物车、方案等值对象以 JSON 列存储，整行随每次流转一次写入
type OrderModel struct {
	ID     string `gorm:"primaryKey;type:varchar(64)"`
	ShopID string `gorm:"type:varchar(64);not null;index:idx_shop_status,priority:1"`
	UserID string `gorm:"type:varchar(64);not null;index"`
	Status string `gorm:"type:varchar(32);not null;index:idx_shop_status,priority:2"`

	Cart                  []domain.CartLine             `gorm:"serializer:json;type:json"`
	ModifiedCart          []domain.CartLine             `gorm:"serializer:json;type:json"`
	ModificationConfirmed bool                          `gorm:"not null;default:false"`
	Proposals             []domain.ModificationProposal `gorm:"serializer:json;type:json"`
	TotalPrice            decimal.Decimal               `gorm:"type:decimal(12,2);not null"`

	StockChecked    bool     `gorm:"not null;default:false"`
	StockOverridden bool     `gorm:"not null;default:false"`
	OutOfStock      []string `gorm:"serializer:json;type:json"`

	VerificationCode       sql.NullString `gorm:"type:varchar(16)"`
	VerificationIssuedAt   sql.NullTime
	VerificationConsumed   bool `gorm:"not null;default:false"`
	VerificationConsumedAt sql.NullTime

	PaymentStatus  string `gorm:"type:varchar(32)"`
	CollectionTime sql.NullTime
	CancelReason   string `gorm:"type:varchar(255)"`

	Version   int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "pickup_orders"
}
