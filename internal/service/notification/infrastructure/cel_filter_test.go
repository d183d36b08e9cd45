package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/service/notification/domain"
	orderdomain "orderflow/internal/service/order/domain"
)

func TestCELFilter_Match(t *testing.T) {
	n := &domain.Notification{
		OrderID: "o-42",
		Status:  orderdomain.StateNeedsSellerReview,
		Message: "Buyer modified the cart of order o-42, review needed",
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"status equals", `status == "NEEDS_SELLER_REVIEW"`, true},
		{"unread only", `!read`, true},
		{"order prefix", `order_id.startsWith("o-4")`, true},
		{"message contains", `message.contains("review") && status != "CANCELLED"`, true},
		{"no match", `status in ["DELIVERED", "CANCELLED"]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewCELFilter(tt.expr)
			require.NoError(t, err)
			got, err := f.Match(n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCELFilter_Invalid(t *testing.T) {
	for _, expr := range []string{`status ==`, `message`, `unknown_var == 1`} {
		_, err := NewCELFilter(expr)
		assert.ErrorIs(t, err, domain.ErrInvalidFilter, expr)
	}
}
