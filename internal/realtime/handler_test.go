package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
	"github.com/vitanova-team/prayer-counter-backend/internal/prayer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// closeNotifyRecorder 给httptest.ResponseRecorder补上CloseNotify，
// 因为gin的Context.Stream要求ResponseWriter实现http.CloseNotifier
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

// useTestDB 把全局数据库句柄指向一个独立的内存数据库并建好prayer表
func useTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&prayer.PrayerType{}, &prayer.PrayerCounter{}, &prayer.PrayerAction{}))

	previous := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = previous
		sqlDB.Close()
	})
	return db
}

func seedVisibleType(t *testing.T, db *gorm.DB, name string) string {
	t.Helper()

	typeID, err := prayer.NewTypeID()
	require.NoError(t, err)
	counterID, err := prayer.NewTypeID()
	require.NoError(t, err)

	require.NoError(t, db.Create(&prayer.PrayerType{
		ID:             typeID,
		Name:           name,
		Kind:           prayer.KindCount,
		IncrementValue: 1,
		IsVisible:      true,
		IsEnabled:      true,
	}).Error)
	require.NoError(t, db.Create(&prayer.PrayerCounter{
		ID:           counterID,
		PrayerTypeID: typeID,
		LastUpdated:  time.Now(),
	}).Error)
	return typeID
}

func TestStreamCounters_SnapshotThenDeltas(t *testing.T) {
	gin.SetMode(gin.TestMode)
	database.UpdateStatus(false, "")
	db := useTestDB(t)
	typeID := seedVisibleType(t, db, "平安祷告")

	r := gin.New()
	r.GET("/api/prayers/stream", StreamCounters)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/prayers/stream", nil).WithContext(ctx)
	w := newCloseNotifyRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(w, req)
	}()

	// 等待SSE连接完成订阅，再广播一条增量
	require.Eventually(t, func() bool {
		defaultBroadcaster.mu.Lock()
		defer defaultBroadcaster.mu.Unlock()
		return len(defaultBroadcaster.subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	defaultBroadcaster.publish([]byte(`{"prayerTypeId":"` + typeID + `"}`))
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SSE处理器在连接取消后未退出")
	}

	body := w.Body.String()
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	// 先是全量快照
	require.Contains(t, body, "event:snapshot")
	require.Contains(t, body, typeID)
	// 然后是增量事件
	require.Contains(t, body, "event:counter")
}

func TestStreamCounters_SnapshotFailureMapsTo500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	database.UpdateStatus(false, "")
	db := useTestDB(t)

	// 删掉表让快照查询失败
	require.NoError(t, db.Migrator().DropTable(&prayer.PrayerType{}))

	r := gin.New()
	r.GET("/api/prayers/stream", StreamCounters)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/prayers/stream", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
