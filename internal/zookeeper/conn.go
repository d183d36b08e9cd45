package zookeeper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"

	"orderflow/internal/pkg/logger"
)

// Conn 包装 zk.Conn
type Conn struct {
	*zk.Conn
}

// Connect 建立会话，并等待首次连接成功或超时
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("zookeeper: no servers configured")
	}
	l := logger.Ctx(context.Background())
	c, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(l))
	if err != nil {
		return nil, fmt.Errorf("zookeeper: connect %v: %w", servers, err)
	}
	deadline := time.After(sessionTimeout)
	for {
		select {
		case ev := <-events:
			if ev.State == zk.StateHasSession {
				l.Info().Strs("servers", servers).Msg("✅ connected to zookeeper")
				go drain(events)
				return &Conn{Conn: c}, nil
			}
		case <-deadline:
			c.Close()
			return nil, fmt.Errorf("zookeeper: no session within %s", sessionTimeout)
		}
	}
}

func drain(events <-chan zk.Event) {
	for range events {
	}
}

// ensurePath 逐级创建持久节点，已存在时忽略
func (c *Conn) ensurePath(path string) error {
	exists, _, err := c.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	for i := 1; i <= len(path); i++ {
		if i != len(path) && path[i] != '/' {
			continue
		}
		_, err := c.Create(path[:i], nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return fmt.Errorf("create %s: %w", path[:i], err)
		}
	}
	return nil
}
