// internal/zookeeper/lock.go
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-zookeeper/zk"
)

// LockRoot 所有订单锁的根节点
const LockRoot = "/orderflow/locks"

// DistributedLock 基于临时顺序节点的公平锁，一个实例只持有一次锁
type DistributedLock struct {
	conn     *Conn
	path     string // 锁的路径，例如 /orderflow/locks/order-123
	lockNode string // 成功获取锁后，自己创建的节点路径
}

// NewDistributedLock 创建一个新的分布式锁实例
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	lockPath := LockRoot + "/" + resourceID
	if err := conn.ensurePath(lockPath); err != nil {
		return nil, fmt.Errorf("prepare lock path %s: %w", lockPath, err)
	}
	return &DistributedLock{conn: conn, path: lockPath}, nil
}

// Lock 获取锁；拿不到时监听前一个节点，直到成功或 ctx 结束
func (l *DistributedLock) Lock(ctx context.Context) error {
	// 在锁路径下创建一个临时顺序节点
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", nil, zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath
	myNodeName := strings.TrimPrefix(nodePath, l.path+"/")

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sortBySequence(children)

		idx := indexOf(children, myNodeName)
		if idx < 0 {
			l.abandon()
			return errors.New("own lock node disappeared, session probably expired")
		}
		if idx == 0 {
			return nil
		}

		// 不是最小节点，监听前一个节点
		prevNodePath := l.path + "/" + children[idx-1]
		exists, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			continue
		}

		select {
		case <-eventChan:
		case <-ctx.Done():
			l.abandon()
			return ctx.Err()
		}
	}
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

func (l *DistributedLock) abandon() {
	if l.lockNode != "" {
		_ = l.conn.Delete(l.lockNode, -1)
		l.lockNode = ""
	}
}

// sortBySequence 按顺序号排序；受保护节点名带有 GUID 前缀，不能直接按字符串排序
func sortBySequence(children []string) {
	sort.SliceStable(children, func(i, j int) bool {
		return sequenceOf(children[i]) < sequenceOf(children[j])
	})
}

func sequenceOf(node string) string {
	if len(node) < 10 {
		return node
	}
	return node[len(node)-10:]
}

func indexOf(children []string, name string) int {
	for i, c := range children {
		if c == name {
			return i
		}
	}
	return -1
}
