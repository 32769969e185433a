package realtime

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitanova-team/prayer-counter-backend/internal/prayer"
)

// StreamCounters 是SSE端点。连接建立后先推送一次全量快照，
// 之后把广播器收到的计数器更新事件逐条转发，直到客户端断开或服务停机。
func StreamCounters(c *gin.Context) {
	snapshot, err := prayer.GetVisiblePrayers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取祷告列表失败"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	events, unsubscribe := Subscribe()
	defer unsubscribe()

	// 1. 全量快照，让客户端无需先调一次GET
	snapshotJSON, _ := json.Marshal(snapshot)
	c.SSEvent("snapshot", string(snapshotJSON))
	c.Writer.Flush()

	// 2. 增量更新
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("counter", string(msg))
			return true
		}
	})
}
