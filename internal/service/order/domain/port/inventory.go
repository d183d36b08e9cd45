package port

import "context"

// StockQuery 询问某商品能否满足指定数量
type StockQuery struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// StockAvailability 是库存服务对单个商品的回答
type StockAvailability struct {
	ItemID    string `json:"itemId"`
	Available bool   `json:"available"`
}

// AvailabilityChecker 是库存服务的出站端口。
// 该端口只读，不做任何预占。
type AvailabilityChecker interface {
	// CheckAvailability 对每个查询返回一条结果。
	// 服务不可达、超时或结果不完整时返回包装了 domain.ErrCheckUnavailable 的错误。
	CheckAvailability(ctx context.Context, queries []StockQuery) ([]StockAvailability, error)
}
