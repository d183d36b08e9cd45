package domain

// ModificationProposal 商家针对某个购物车行提出的替代方案
type ModificationProposal struct {
	ItemID            string   `json:"itemId"`
	Name              string   `json:"name"`
	OriginalQuantity  int      `json:"originalQuantity"`
	RequestedQuantity int      `json:"requestedQuantity"`
	Note              string   `json:"note,omitempty"`
	Images            []string `json:"images,omitempty"`
}

// ValidateProposals 校验方案：必须引用购物车中的商品，
// 1 <= requestedQuantity <= 原数量，且同一商品只能出现一次
func ValidateProposals(cart Cart, proposals []ModificationProposal) error {
	if len(proposals) == 0 {
		return invalidProposal("at least one proposal is required")
	}
	seen := make(map[string]struct{}, len(proposals))
	for _, p := range proposals {
		line, ok := cart.Find(p.ItemID)
		if !ok {
			return invalidProposal("item %q is not in the cart", p.ItemID)
		}
		if _, dup := seen[p.ItemID]; dup {
			return invalidProposal("item %q proposed more than once", p.ItemID)
		}
		seen[p.ItemID] = struct{}{}
		if p.RequestedQuantity < 1 || p.RequestedQuantity > line.Quantity {
			return invalidProposal("item %q: requested quantity %d outside [1, %d]", p.ItemID, p.RequestedQuantity, line.Quantity)
		}
	}
	return nil
}

// ApplyProposals 基于原购物车生成候选的修改后购物车。
// 调用前必须通过 ValidateProposals。
func ApplyProposals(cart Cart, proposals []ModificationProposal) Cart {
	requested := make(map[string]int, len(proposals))
	for _, p := range proposals {
		requested[p.ItemID] = p.RequestedQuantity
	}
	out := cart.Clone()
	for i := range out {
		if q, ok := requested[out[i].ItemID]; ok {
			out[i].Quantity = q
		}
	}
	return out
}

// NormalizeProposals 用购物车中的数据补全方案的原数量与名称
func NormalizeProposals(cart Cart, proposals []ModificationProposal) []ModificationProposal {
	out := make([]ModificationProposal, len(proposals))
	for i, p := range proposals {
		if line, ok := cart.Find(p.ItemID); ok {
			p.OriginalQuantity = line.Quantity
			if p.Name == "" {
				p.Name = line.Name
			}
		}
		if p.Images != nil {
			p.Images = append([]string(nil), p.Images...)
		}
		out[i] = p
	}
	return out
}
