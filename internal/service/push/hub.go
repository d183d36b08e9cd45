package push

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"orderflow/internal/pkg/logger"
)

const (
	defaultWriteWait = 10 * time.Second
	pongWait         = 60 * time.Second
	sendBufferSize   = 64
)

// Hub 维护所有活跃的 WebSocket 连接，按店铺分组推送订单状态变更
type Hub struct {
	nodeID   string
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	shops map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	pingPeriod time.Duration
	writeWait  time.Duration
}

// NewHub pingPeriod 必须小于 pongWait，非法值回退到默认
func NewHub(pingPeriod, writeWait time.Duration) *Hub {
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = (pongWait * 9) / 10
	}
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	return &Hub{
		nodeID: "push-gateway-" + uuid.New().String()[:8],
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 简化处理，允许所有跨域
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		shops:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		pingPeriod: pingPeriod,
		writeWait:  writeWait,
	}
}

// NodeID 标识当前网关节点
func (h *Hub) NodeID() string {
	return h.nodeID
}

// Run 是 Hub 的主循环，阻塞直到 ctx 取消；退出时关闭所有连接
func (h *Hub) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("node", h.nodeID).Msg("✅ push hub started")
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			clients, ok := h.shops[c.shopID]
			if !ok {
				clients = make(map[*Client]struct{})
				h.shops[c.shopID] = clients
			}
			clients[c] = struct{}{}
			h.mu.Unlock()
			logger.Ctx(ctx).Info().Str("shop_id", c.shopID).Str("node", h.nodeID).Msg("client registered")
		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
			logger.Ctx(ctx).Info().Str("shop_id", c.shopID).Msg("client unregistered")
		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.shops {
				for c := range clients {
					h.remove(c)
				}
			}
			h.mu.Unlock()
			logger.Ctx(ctx).Info().Str("node", h.nodeID).Msg("🛑 push hub stopped")
			return nil
		}
	}
}

// remove 调用方必须持有写锁
func (h *Hub) remove(c *Client) {
	clients, ok := h.shops[c.shopID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.shops, c.shopID)
	}
	close(c.send)
}

// Publish 把消息推给店铺的所有连接，返回成功入队的连接数。
// 发送缓冲区已满的慢连接会被断开，由客户端负责重连。
func (h *Hub) Publish(shopID string, payload []byte) int {
	h.mu.RLock()
	var slow []*Client
	delivered := 0
	for c := range h.shops[shopID] {
		select {
		case c.send <- payload:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
	return delivered
}

// Connections 返回店铺当前的连接数
func (h *Hub) Connections(shopID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.shops[shopID])
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ServeWS 把 HTTP 请求升级为 WebSocket，并注册到 shopId 对应的分组
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shopId")
	if shopID == "" {
		http.Error(w, "shopId is required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize), shopID: shopID}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
