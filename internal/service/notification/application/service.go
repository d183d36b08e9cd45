// internal/service/notification/application/service.go
package application

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/notification/domain"
	orderdomain "orderflow/internal/service/order/domain"
)

// FilterCompiler 把过滤表达式编译为 domain.Filter
type FilterCompiler func(expr string) (domain.Filter, error)

// SearchCriteria 对应收件箱搜索框：消息子串加可选的过滤表达式
type SearchCriteria struct {
	Message string `json:"message"`
	Filter  string `json:"filter,omitempty"`
}

// InboxService 是商家通知收件箱的应用服务
type InboxService struct {
	repo    domain.Repository
	compile FilterCompiler
	tracer  trace.Tracer
	// limit 是单次搜索扫描的上限
	limit int
}

func NewInboxService(repo domain.Repository, compile FilterCompiler, tracer trace.Tracer, searchLimit int) *InboxService {
	if searchLimit <= 0 {
		searchLimit = 500
	}
	return &InboxService{repo: repo, compile: compile, tracer: tracer, limit: searchLimit}
}

// Record 为一次状态变更写入通知；重复投递的事件被忽略
func (s *InboxService) Record(ctx context.Context, evt orderdomain.StatusChanged) (*domain.Notification, error) {
	ctx, span := s.tracer.Start(ctx, "app.RecordNotification", trace.WithAttributes(
		attribute.String("order.id", evt.OrderID),
		attribute.String("order.status", string(evt.NewStatus)),
	))
	defer span.End()

	n, err := domain.FromStatusChanged(evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid status change")
		return nil, err
	}
	if err := s.repo.Create(ctx, n); err != nil {
		if errors.Is(err, domain.ErrDuplicateNotification) {
			logger.Ctx(ctx).Info().Str("notification_id", n.ID).Msg("notification already recorded, ignoring redelivery")
			return n, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save notification")
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("shop_id", n.ShopID).Str("order_id", n.OrderID).Str("status", string(n.Status)).Msg("✅ notification recorded")
	return n, nil
}

func (s *InboxService) List(ctx context.Context, shopID string) ([]*domain.Notification, error) {
	return s.repo.List(ctx, domain.Query{ShopID: shopID})
}

func (s *InboxService) MarkRead(ctx context.Context, shopID, id string) error {
	return s.repo.MarkRead(ctx, shopID, id)
}

func (s *InboxService) MarkAllRead(ctx context.Context, shopID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, shopID)
}

func (s *InboxService) Delete(ctx context.Context, shopID, id string) error {
	return s.repo.Delete(ctx, shopID, id)
}

func (s *InboxService) DeleteAll(ctx context.Context, shopID string) (int64, error) {
	return s.repo.DeleteAll(ctx, shopID)
}

// Search 先按消息子串在存储中筛选，再在内存中对结果应用过滤表达式
func (s *InboxService) Search(ctx context.Context, shopID string, c SearchCriteria) ([]*domain.Notification, error) {
	ctx, span := s.tracer.Start(ctx, "app.SearchNotifications", trace.WithAttributes(attribute.String("shop.id", shopID)))
	defer span.End()

	var filter domain.Filter
	if c.Filter != "" {
		if s.compile == nil {
			return nil, domain.ErrInvalidFilter
		}
		f, err := s.compile(c.Filter)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		filter = f
	}

	items, err := s.repo.List(ctx, domain.Query{ShopID: shopID, Contains: c.Message, Limit: s.limit})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if filter == nil {
		return items, nil
	}
	out := make([]*domain.Notification, 0, len(items))
	for _, n := range items {
		ok, err := filter.Match(n)
		if err != nil {
			span.RecordError(err)
			return nil, errors.Join(domain.ErrInvalidFilter, err)
		}
		if ok {
			out = append(out, n)
		}
	}
	span.SetAttributes(attribute.Int("search.matched", len(out)))
	return out, nil
}
