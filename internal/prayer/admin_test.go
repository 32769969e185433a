package prayer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/vitanova-team/prayer-counter-backend/internal/admin"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
	"gorm.io/gorm"
)

// newAdminRouter 装配管理端类型路由。全局数据库句柄指向测试库，
// 认证中间件用注入固定管理员ID的桩替代。
func newAdminRouter(t *testing.T, notifier Notifier) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	database.UpdateStatus(false, "")

	db := newTestDB(t)
	previous := database.DB
	database.DB = db
	defaultEngine = NewEngine(db, notifier, 30*time.Second)
	t.Cleanup(func() {
		database.DB = previous
		defaultEngine = nil
	})

	asAdmin := func(c *gin.Context) {
		c.Set(admin.AdminIDKey, "admin-1")
		c.Next()
	}

	r := gin.New()
	r.POST("/api/admin/prayers", asAdmin, CreatePrayerType)
	r.PATCH("/api/admin/prayers/:id", asAdmin, UpdatePrayerType)
	r.DELETE("/api/admin/prayers/:id", asAdmin, DeletePrayerType)
	return r, db
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreatePrayerType_PersistsDisabledHidden(t *testing.T) {
	notifier := &recordingNotifier{}
	r, db := newAdminRouter(t, notifier)

	w := doJSON(r, http.MethodPost, "/api/admin/prayers",
		`{"name":"内部测试","kind":"count","incrementValue":2,"isVisible":false,"isEnabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var created PrayerType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// 创建为停用且隐藏的类型必须原样落库
	var stored PrayerType
	require.NoError(t, db.Where("id = ?", created.ID).First(&stored).Error)
	require.False(t, stored.IsVisible)
	require.False(t, stored.IsEnabled)

	// 停用的类型拒绝公开提交
	_, err := defaultEngine.Submit(context.Background(), created.ID, "user-a", "", "")
	require.ErrorIs(t, err, ErrTypeDisabled)

	// 隐藏的类型不出现在公开列表里
	visible, err := GetVisiblePrayers()
	require.NoError(t, err)
	for _, p := range visible {
		require.NotEqual(t, created.ID, p.Type.ID)
	}

	// 同一事务里创建了清零的计数器并留下审计记录
	var counter PrayerCounter
	require.NoError(t, db.Where("prayer_type_id = ?", created.ID).First(&counter).Error)
	require.Zero(t, counter.TotalCount)

	var action PrayerAction
	require.NoError(t, db.Where("prayer_type_id = ? AND action_type = ?", created.ID, ActionAdminCreate).
		First(&action).Error)
	require.Equal(t, "admin-1", action.UserIdentifier)

	// 事务提交后新计数器被推入展示缓存
	require.Equal(t, []string{created.ID}, notifier.updated)
}

func TestCreatePrayerType_DefaultsToVisibleEnabled(t *testing.T) {
	r, db := newAdminRouter(t, nil)

	w := doJSON(r, http.MethodPost, "/api/admin/prayers",
		`{"name":"平安祷告","kind":"count","incrementValue":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var created PrayerType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	var stored PrayerType
	require.NoError(t, db.Where("id = ?", created.ID).First(&stored).Error)
	require.True(t, stored.IsVisible)
	require.True(t, stored.IsEnabled)
}

func TestCreatePrayerType_KindValidation(t *testing.T) {
	r, _ := newAdminRouter(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "count without incrementValue", body: `{"name":"x","kind":"count"}`},
		{name: "time without minutes", body: `{"name":"x","kind":"time"}`},
		{name: "unknown kind", body: `{"name":"x","kind":"bogus","incrementValue":1}`},
		{name: "missing name", body: `{"kind":"count","incrementValue":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/admin/prayers", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUpdatePrayerType_CanDisable(t *testing.T) {
	r, db := newAdminRouter(t, nil)
	typeID := seedType(t, db, KindCount, 1, true)

	w := doJSON(r, http.MethodPatch, "/api/admin/prayers/"+typeID,
		`{"name":"改名","kind":"count","incrementValue":1,"isEnabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var stored PrayerType
	require.NoError(t, db.Where("id = ?", typeID).First(&stored).Error)
	require.Equal(t, "改名", stored.Name)
	require.False(t, stored.IsEnabled)
}

func TestDeletePrayerType_CascadesCounter(t *testing.T) {
	r, db := newAdminRouter(t, nil)
	typeID := seedType(t, db, KindCount, 1, true)

	w := doJSON(r, http.MethodDelete, "/api/admin/prayers/"+typeID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var typeCount, counterCount int64
	require.NoError(t, db.Model(&PrayerType{}).Where("id = ?", typeID).Count(&typeCount).Error)
	require.NoError(t, db.Model(&PrayerCounter{}).Where("prayer_type_id = ?", typeID).Count(&counterCount).Error)
	require.Zero(t, typeCount)
	require.Zero(t, counterCount)

	// 删除留痕，Note保留被删类型的名称
	var action PrayerAction
	require.NoError(t, db.Where("prayer_type_id = ? AND action_type = ?", typeID, ActionAdminDelete).
		First(&action).Error)
	require.Equal(t, "测试祷告", action.Note)
}
