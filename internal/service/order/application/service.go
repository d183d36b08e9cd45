// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/metrics"
	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
)

const publishTimeout = 5 * time.Second

// Options 订单生命周期的行为开关
type Options struct {
	// AllowStockOverride 允许商家在缺货时强制接单
	AllowStockOverride bool
	// StockCheckOnAccept 为 false 时 Accept 不经过库存守卫
	StockCheckOnAccept bool
	// LockWait 等待订单锁的上限，0 表示只受调用方 ctx 约束
	LockWait time.Duration
	Clock    func() time.Time
	Metrics  *metrics.OrderMetrics
}

// OrderLifecycle 是订单状态的唯一入口：
// 同一订单的流转串行执行，每次流转是一次原子写入，提交后才发布通知。
type OrderLifecycle struct {
	repo      domain.OrderRepository
	locker    port.OrderLocker
	publisher port.StatusPublisher
	tracer    trace.Tracer

	stock      *stockGuard
	negotiator ModificationNegotiator
	gate       *VerificationGate

	opts Options
}

func NewOrderLifecycle(repo domain.OrderRepository, locker port.OrderLocker, checker port.AvailabilityChecker, publisher port.StatusPublisher, codes port.CodeGenerator, tracer trace.Tracer, opts Options) *OrderLifecycle {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &OrderLifecycle{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		tracer:    tracer,
		stock:     &stockGuard{checker: checker, allowOverride: opts.AllowStockOverride, metrics: opts.Metrics},
		gate:      NewVerificationGate(codes, opts.Metrics),
		opts:      opts,
	}
}

// PlaceOrder 创建处于 Placed 状态的订单。重复投递同一订单时返回已存在的订单。
func (s *OrderLifecycle) PlaceOrder(ctx context.Context, evt *domain.OrderPlaced) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.PlaceOrder")
	defer span.End()

	order, err := domain.NewOrder(evt, s.opts.Clock())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid order")
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("shop.id", order.ShopID))

	if err := s.repo.Create(ctx, order); err != nil {
		if errors.Is(err, domain.ErrOrderExists) {
			logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("order already placed, ignoring redelivery")
			return s.repo.FindByID(ctx, order.ID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save order")
		return nil, err
	}

	s.publish(ctx, "", order, "", []domain.State{domain.StatePlaced})
	logger.Ctx(ctx).Info().Str("order_id", order.ID).Str("shop_id", order.ShopID).Msg("✅ order placed")
	return order, nil
}

// GetOrder 返回权威存储中的订单快照
func (s *OrderLifecycle) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()
	return s.repo.FindByID(ctx, orderID)
}

// ListOrders 列出店铺的订单，status 为空时返回全部
func (s *OrderLifecycle) ListOrders(ctx context.Context, shopID string, status domain.State) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders", trace.WithAttributes(attribute.String("shop.id", shopID)))
	defer span.End()
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidOrder, status)
	}
	return s.repo.ListByShop(ctx, shopID, status)
}

// CartDiff 返回原购物车与修改后购物车之间的差异
func (s *OrderLifecycle) CartDiff(ctx context.Context, orderID string) ([]domain.CartDiffEntry, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.negotiator.Diff(order), nil
}

// RequestTransition 是唯一的状态变更入口。
// 被拒绝时返回未改变的订单与原因，存储中不会留下任何部分写入。
func (s *OrderLifecycle) RequestTransition(ctx context.Context, orderID string, evt domain.Event) (*TransitionResult, error) {
	if evt == nil {
		return nil, fmt.Errorf("%w: no event", domain.ErrInvalidTransition)
	}
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "app.RequestTransition", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.event", string(evt.Kind())),
	))
	defer span.End()

	res, err := s.requestTransition(ctx, orderID, evt)
	s.opts.Metrics.ObserveTransition(string(evt.Kind()), Outcome(err), started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Outcome(err))
		logger.Ctx(ctx).Warn().Err(err).
			Str("order_id", orderID).
			Str("event", string(evt.Kind())).
			Msg("transition rejected")
		return res, err
	}
	span.SetAttributes(attribute.String("order.status", string(res.Order.Status)))
	logger.Ctx(ctx).Info().
		Str("order_id", orderID).
		Str("event", string(evt.Kind())).
		Str("status", string(res.Order.Status)).
		Int64("version", res.Order.Version).
		Msg("✅ transition committed")
	return res, nil
}

func (s *OrderLifecycle) requestTransition(ctx context.Context, orderID string, evt domain.Event) (*TransitionResult, error) {
	release, err := s.lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	visited, code, err := s.apply(ctx, next, evt)
	if err != nil {
		return rejectedResult(current, err), current.Rejection(evt.Kind(), err)
	}
	// 调用方在守卫之后放弃了请求，不再写入
	if err := ctx.Err(); err != nil {
		return rejectedResult(current, err), err
	}

	next.Version = current.Version + 1
	if err := s.repo.Update(ctx, next, current.Version); err != nil {
		return rejectedResult(current, err), err
	}

	s.publish(ctx, current.Status, next, evt.Kind(), visited)
	return &TransitionResult{
		Order:            next,
		Pending:          next.Pending(),
		VerificationCode: code,
		Visited:          visited,
	}, nil
}

// apply 在订单副本上执行事件，返回依次进入的状态以及新签发的核销码
func (s *OrderLifecycle) apply(ctx context.Context, o *domain.Order, evt domain.Event) ([]domain.State, string, error) {
	now := s.opts.Clock()
	if err := o.Permit(evt.Kind()); err != nil {
		return nil, "", err
	}

	var err error
	switch e := evt.(type) {
	case domain.Accept:
		if s.opts.StockCheckOnAccept {
			if err := s.stock.guard(ctx, o, e.Override); err != nil {
				return nil, "", err
			}
		}
		err = o.Accept(now)
	case domain.Reject:
		err = o.Reject(e.Reason, now)
	case domain.RequestAlternatives:
		visited, err := s.negotiator.RequestAndPropose(o, e.Proposals, now)
		return visited, "", err
	case domain.SubmitAlternativesProposal:
		err = s.negotiator.Propose(o, e.Proposals, now)
	case domain.BuyerRespondWithModifiedCart:
		err = s.negotiator.Respond(o, e.Cart, now)
	case domain.ConfirmModification:
		if err := s.stock.guard(ctx, o, false); err != nil {
			return nil, "", err
		}
		err = o.ConfirmModification(now)
	case domain.AdvanceStatus:
		if err := o.Advance(now); err != nil {
			return nil, "", err
		}
		if o.Status == domain.StateReadyForPickup {
			code, err := s.gate.Issue(o, now)
			if err != nil {
				return nil, "", err
			}
			return []domain.State{o.Status}, code, nil
		}
	case domain.Cancel:
		err = o.Cancel(e.Reason, now)
	case domain.SubmitVerificationCode:
		err = s.gate.Verify(o, e.Code, now)
	default:
		return nil, "", fmt.Errorf("%w: unsupported event %T", domain.ErrInvalidTransition, evt)
	}
	if err != nil {
		return nil, "", err
	}
	return []domain.State{o.Status}, "", nil
}

// ReissueVerificationCode 为 ReadyForPickup 的订单重新签发核销码，旧码立即失效
func (s *OrderLifecycle) ReissueVerificationCode(ctx context.Context, orderID string) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.ReissueVerificationCode", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	release, err := s.lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	code, err := s.gate.Issue(next, s.opts.Clock())
	if err != nil {
		span.RecordError(err)
		return rejectedResult(current, err), err
	}
	next.Version = current.Version + 1
	if err := s.repo.Update(ctx, next, current.Version); err != nil {
		span.RecordError(err)
		return rejectedResult(current, err), err
	}
	logger.Ctx(ctx).Info().Str("order_id", orderID).Msg("verification code reissued")
	return &TransitionResult{Order: next, Pending: next.Pending(), VerificationCode: code}, nil
}

// CheckStock 对待审购物车做一次显式库存检查并记录结果。
// 通过时记住 StockChecked，后续 Accept / ConfirmModification 不再查询库存服务。
func (s *OrderLifecycle) CheckStock(ctx context.Context, orderID string) (*StockReport, error) {
	ctx, span := s.tracer.Start(ctx, "app.CheckStock", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	release, err := s.lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.StatePlaced && current.Status != domain.StateNeedsSellerReview {
		return nil, fmt.Errorf("%w: stock check does not apply in state %s", domain.ErrInvalidTransition, current.Status)
	}

	short, err := s.stock.query(ctx, current.CartUnderReview())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	next := current.Clone()
	if len(short) == 0 {
		next.RecordStockCheck(nil, false)
	} else {
		next.NoteStockShortage(short)
	}
	next.Version = current.Version + 1
	if err := s.repo.Update(ctx, next, current.Version); err != nil {
		return nil, err
	}
	return &StockReport{Order: next, Unavailable: short, StockChecked: next.StockChecked}, nil
}

// lock 获取订单锁；等待超时视为并发冲突，调用方可以重试
func (s *OrderLifecycle) lock(ctx context.Context, orderID string) (func(), error) {
	lockCtx := ctx
	if s.opts.LockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.opts.LockWait)
		defer cancel()
	}
	release, err := s.locker.Lock(lockCtx, orderID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: order %s is busy: %v", domain.ErrConcurrentModification, orderID, err)
	}
	return release, nil
}

// publish 在提交之后逐个发布状态变更；失败只记录，不回滚
func (s *OrderLifecycle) publish(ctx context.Context, from domain.State, o *domain.Order, kind domain.EventKind, visited []domain.State) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	prev := from
	for _, st := range visited {
		evt := domain.StatusChanged{
			OrderID:        o.ID,
			ShopID:         o.ShopID,
			UserID:         o.UserID,
			PreviousStatus: prev,
			NewStatus:      st,
			Event:          kind,
			Timestamp:      o.UpdatedAt,
		}
		if err := s.publisher.PublishStatusChanged(pubCtx, evt); err != nil {
			s.opts.Metrics.PublishFailed()
			logger.Ctx(ctx).Error().Err(err).
				Str("order_id", o.ID).
				Str("status", string(st)).
				Msg("🚨 failed to publish status change")
		}
		prev = st
	}
}
