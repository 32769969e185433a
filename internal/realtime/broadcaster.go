package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
	"github.com/vitanova-team/prayer-counter-backend/internal/prayer"
	"github.com/vitanova-team/prayer-counter-backend/pkg/lifecycle"
)

// broadcaster 订阅Redis的计数器更新频道，并把消息扇出给所有SSE连接。
// 订阅者channel带缓冲，写不进去就丢弃该条消息（慢客户端可随时用GET全量对齐）。
type broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
}

var defaultBroadcaster = &broadcaster{
	subscribers: make(map[chan []byte]struct{}),
}

// subscriberBuffer 是每个SSE连接的待发队列长度
const subscriberBuffer = 16

// Subscribe 注册一个新的SSE连接，返回消息channel和注销函数。
func Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	defaultBroadcaster.mu.Lock()
	defaultBroadcaster.subscribers[ch] = struct{}{}
	defaultBroadcaster.mu.Unlock()

	return ch, func() {
		defaultBroadcaster.mu.Lock()
		delete(defaultBroadcaster.subscribers, ch)
		defaultBroadcaster.mu.Unlock()
	}
}

func (b *broadcaster) publish(msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// StartBroadcaster 启动Redis订阅循环。订阅断开（如Redis重启）时会
// 带退避地重连，生命周期与优雅停机信号绑定。
func StartBroadcaster(handle *lifecycle.Handle) {
	go runBroadcaster(handle)
}

func runBroadcaster(handle *lifecycle.Handle) {
	defer handle.Close()
	fmt.Println("实时推送广播器已启动。")

	for {
		select {
		case <-handle.Done():
			fmt.Println("实时推送广播器已退出。")
			return
		default:
		}

		if err := consumeUpdates(handle); err != nil {
			fmt.Printf("警告: 实时推送订阅中断: %v\n", err)
		}
		// 重连前稍作等待，避免Redis不可用时空转
		if handle.Sleep(3*time.Second) != nil {
			fmt.Println("实时推送广播器已退出。")
			return
		}
	}
}

// consumeUpdates 维持一次订阅会话，直到出错或收到停机信号。
func consumeUpdates(handle *lifecycle.Handle) error {
	pubsub := database.RDB.Subscribe(database.Ctx, prayer.UpdateChannel)
	defer pubsub.Close()

	// 确认订阅建立成功，失败则交给上层退避重试
	if _, err := pubsub.Receive(database.Ctx); err != nil {
		return err
	}

	msgChan := pubsub.Channel()
	for {
		select {
		case <-handle.Done():
			return nil
		case msg, ok := <-msgChan:
			if !ok {
				return fmt.Errorf("订阅channel已关闭")
			}
			defaultBroadcaster.publish([]byte(msg.Payload))
		}
	}
}
