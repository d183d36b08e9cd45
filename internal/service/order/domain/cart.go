package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartLine 是购物车中的一行，跨购物车比较时以 ItemID 匹配
type CartLine struct {
	ItemID    string          `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"imageRef,omitempty"`
}

// Subtotal 计算单行小计
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart 是有序的购物车行集合
type Cart []CartLine

// Total 计算整个购物车的总价
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Find 按 ItemID 查找购物车行
func (c Cart) Find(itemID string) (CartLine, bool) {
	for _, line := range c {
		if line.ItemID == itemID {
			return line, true
		}
	}
	return CartLine{}, false
}

// Clone 深拷贝，nil 保持为 nil
func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Validate 校验购物车行：ItemID 非空、数量为正、ItemID 不重复
func (c Cart) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for i, line := range c {
		if line.ItemID == "" {
			return fmt.Errorf("line %d: item id is required", i)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("line %d (%s): quantity must be at least 1, got %d", i, line.ItemID, line.Quantity)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("line %d (%s): unit price cannot be negative", i, line.ItemID)
		}
		if _, dup := seen[line.ItemID]; dup {
			return fmt.Errorf("line %d: duplicate item id %s", i, line.ItemID)
		}
		seen[line.ItemID] = struct{}{}
	}
	return nil
}

// DiffKind 描述一个商品在两个购物车之间的变化类型
type DiffKind string

const (
	DiffUnchanged       DiffKind = "unchanged"
	DiffQuantityChanged DiffKind = "quantityChanged"
	DiffAdded           DiffKind = "added"
	DiffRemoved         DiffKind = "removed"
)

// CartDiffEntry 是派生数据，按需计算，从不持久化
type CartDiffEntry struct {
	ItemID           string   `json:"itemId"`
	Kind             DiffKind `json:"kind"`
	OriginalQuantity int      `json:"originalQuantity,omitempty"`
	NewQuantity      int      `json:"newQuantity,omitempty"`
}

// Diff 计算原购物车与修改后购物车之间的结构化差异。
// 同一购物车中重复出现的 ItemID 会合并数量。
// 输出顺序：先按原购物车中的出现顺序，再追加新增商品；调用方不应依赖顺序。
func Diff(original, modified []CartLine) []CartDiffEntry {
	origQty, origOrder := aggregate(original)
	newQty, newOrder := aggregate(modified)

	entries := make([]CartDiffEntry, 0, len(origOrder)+len(newOrder))
	for _, id := range origOrder {
		before := origQty[id]
		after, ok := newQty[id]
		switch {
		case !ok:
			entries = append(entries, CartDiffEntry{ItemID: id, Kind: DiffRemoved, OriginalQuantity: before})
		case before != after:
			entries = append(entries, CartDiffEntry{ItemID: id, Kind: DiffQuantityChanged, OriginalQuantity: before, NewQuantity: after})
		default:
			entries = append(entries, CartDiffEntry{ItemID: id, Kind: DiffUnchanged, OriginalQuantity: before, NewQuantity: after})
		}
	}
	for _, id := range newOrder {
		if _, ok := origQty[id]; ok {
			continue
		}
		entries = append(entries, CartDiffEntry{ItemID: id, Kind: DiffAdded, NewQuantity: newQty[id]})
	}
	return entries
}

func aggregate(lines []CartLine) (map[string]int, []string) {
	qty := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := qty[line.ItemID]; !ok {
			order = append(order, line.ItemID)
		}
		qty[line.ItemID] += line.Quantity
	}
	return qty, order
}

// HasChanges 判断差异中是否存在任何非 unchanged 的条目
func HasChanges(entries []CartDiffEntry) bool {
	for _, e := range entries {
		if e.Kind != DiffUnchanged {
			return true
		}
	}
	return false
}
