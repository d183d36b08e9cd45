package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"orderflow/internal/pkg/metrics"
	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
)

// stockGuard 是唯一的库存守卫：以 StockChecked 为记忆，只在未通过时查询库存服务
type stockGuard struct {
	checker       port.AvailabilityChecker
	allowOverride bool
	metrics       *metrics.OrderMetrics
}

// query 查询购物车中每个商品是否可满足，返回缺货的 ItemID（按字典序）
func (g *stockGuard) query(ctx context.Context, cart domain.Cart) ([]string, error) {
	if g.checker == nil {
		g.metrics.StockCheck("unavailable")
		return nil, fmt.Errorf("%w: no availability checker configured", domain.ErrCheckUnavailable)
	}
	wanted := make(map[string]int, len(cart))
	queries := make([]port.StockQuery, 0, len(cart))
	for _, line := range cart {
		if _, ok := wanted[line.ItemID]; !ok {
			queries = append(queries, port.StockQuery{ItemID: line.ItemID})
		}
		wanted[line.ItemID] += line.Quantity
	}
	for i := range queries {
		queries[i].Quantity = wanted[queries[i].ItemID]
	}

	answers, err := g.checker.CheckAvailability(ctx, queries)
	if err != nil {
		g.metrics.StockCheck("unavailable")
		if errors.Is(err, domain.ErrCheckUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCheckUnavailable, err)
	}

	available := make(map[string]bool, len(answers))
	for _, a := range answers {
		available[a.ItemID] = a.Available
	}
	var short []string
	for _, q := range queries {
		ok, answered := available[q.ItemID]
		if !answered {
			g.metrics.StockCheck("unavailable")
			return nil, fmt.Errorf("%w: no answer for item %s", domain.ErrCheckUnavailable, q.ItemID)
		}
		if !ok {
			short = append(short, q.ItemID)
		}
	}
	sort.Strings(short)
	if len(short) > 0 {
		g.metrics.StockCheck("out_of_stock")
	} else {
		g.metrics.StockCheck("pass")
	}
	return short, nil
}

// guard 对订单的待审购物车执行守卫。通过或被覆盖时在订单上记住结果；
// 被阻止时返回 *domain.StockError 或 ErrCheckUnavailable，订单不变。
func (g *stockGuard) guard(ctx context.Context, o *domain.Order, override bool) error {
	if o.StockChecked {
		g.metrics.StockCheck("memoized")
		return nil
	}
	short, err := g.query(ctx, o.CartUnderReview())
	if err != nil {
		return err
	}
	if len(short) == 0 {
		o.RecordStockCheck(nil, false)
		return nil
	}
	if override && g.allowOverride {
		o.RecordStockCheck(short, true)
		return nil
	}
	return &domain.StockError{Unavailable: short}
}
