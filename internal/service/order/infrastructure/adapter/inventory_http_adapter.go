package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"orderflow/internal/pkg/httpclient"
	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
)

const maxParallelChunks = 4

// CheckAvailabilityRequest 是库存服务 /check_availability 的请求体
type CheckAvailabilityRequest struct {
	Items []port.StockQuery `json:"items"`
}

// CheckAvailabilityResponse 是库存服务 /check_availability 的响应体
type CheckAvailabilityResponse struct {
	Items []port.StockAvailability `json:"items"`
}

// InventoryHTTPAdapter 实现了 port.AvailabilityChecker 接口。
// 查询按 chunkSize 分批并发发送，任一批失败则整次检查失败。
type InventoryHTTPAdapter struct {
	client      *httpclient.Client
	serviceName string
	baseURL     string
	path        string
	timeout     time.Duration
	chunkSize   int
}

// NewInventoryHTTPAdapter baseURL 为空时通过 client 的 Resolver 按 serviceName 发现地址
func NewInventoryHTTPAdapter(client *httpclient.Client, serviceName, baseURL, path string, timeout time.Duration, chunkSize int) *InventoryHTTPAdapter {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	return &InventoryHTTPAdapter{
		client:      client,
		serviceName: serviceName,
		baseURL:     strings.TrimRight(baseURL, "/"),
		path:        path,
		timeout:     timeout,
		chunkSize:   chunkSize,
	}
}

func (a *InventoryHTTPAdapter) CheckAvailability(ctx context.Context, queries []port.StockQuery) ([]port.StockAvailability, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var chunks [][]port.StockQuery
	for start := 0; start < len(queries); start += a.chunkSize {
		end := min(start+a.chunkSize, len(queries))
		chunks = append(chunks, queries[start:end])
	}

	results := make([][]port.StockAvailability, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChunks)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			var resp CheckAvailabilityResponse
			if err := a.call(gctx, CheckAvailabilityRequest{Items: chunk}, &resp); err != nil {
				return err
			}
			results[i] = resp.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCheckUnavailable, err)
	}

	out := make([]port.StockAvailability, 0, len(queries))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (a *InventoryHTTPAdapter) call(ctx context.Context, req CheckAvailabilityRequest, resp *CheckAvailabilityResponse) error {
	if a.baseURL != "" {
		return a.client.PostJSON(ctx, a.baseURL+a.path, req, resp)
	}
	return a.client.CallService(ctx, a.serviceName, a.path, req, resp)
}
