// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Resolver 把服务名解析为基础地址，例如 http://10.0.0.3:8082
type Resolver interface {
	Resolve(ctx context.Context, serviceName string) (string, error)
}

// StaticResolver 使用固定映射，未配置服务发现时使用
type StaticResolver map[string]string

func (r StaticResolver) Resolve(_ context.Context, serviceName string) (string, error) {
	base, ok := r[serviceName]
	if !ok || base == "" {
		return "", fmt.Errorf("no address configured for service %s", serviceName)
	}
	return base, nil
}

// StatusError 下游返回了非 2xx 状态
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client 是一个可追踪的、可注入的HTTP客户端
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	Resolver   Resolver
}

// NewClient 创建一个新的客户端实例。
// http.Client 不设置 Timeout，超时完全由每次请求的 context 控制。
func NewClient(tracer trace.Tracer, resolver Resolver) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
		Resolver:   resolver,
	}
}

// CallService 解析服务地址后以 JSON 调用 path
func (c *Client) CallService(ctx context.Context, serviceName, path string, in, out any) error {
	if c.Resolver == nil {
		return fmt.Errorf("no resolver configured for service %s", serviceName)
	}
	base, err := c.Resolver.Resolve(ctx, serviceName)
	if err != nil {
		return err
	}
	return c.PostJSON(ctx, strings.TrimRight(base, "/")+path, in, out)
}

// PostJSON 发送 JSON 请求并解析 JSON 响应；out 为 nil 时忽略响应体
func (c *Client) PostJSON(ctx context.Context, serviceURL string, in, out any) error {
	spanName := "call-" + hostOf(serviceURL)
	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	body, err := json.Marshal(in)
	if err != nil {
		span.RecordError(err)
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	span.SetAttributes(
		attribute.String("http.url", serviceURL),
		attribute.String("http.method", http.MethodPost),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := &StatusError{URL: serviceURL, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("decode response from %s: %w", serviceURL, err)
	}
	return nil
}

func hostOf(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	return strings.Split(s, ":")[0]
}
