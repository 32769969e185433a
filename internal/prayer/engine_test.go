package prayer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 为每个测试创建一个独立的内存数据库。
// 连接数限制为1，模拟SQLite单写者的行为，让并发测试稳定可重复。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&PrayerType{}, &PrayerCounter{}, &PrayerAction{}))
	return db
}

// seedType 创建一个类型及其清零的计数器，返回类型ID
func seedType(t *testing.T, db *gorm.DB, kind PrayerKind, amount int64, enabled bool) string {
	t.Helper()

	typeID, err := NewTypeID()
	require.NoError(t, err)
	counterID, err := NewTypeID()
	require.NoError(t, err)

	pt := PrayerType{
		ID:        typeID,
		Name:      "测试祷告",
		Kind:      kind,
		IsVisible: true,
		IsEnabled: enabled,
	}
	if kind == KindTime {
		pt.TimeIncrementMinutes = amount
	} else {
		pt.IncrementValue = amount
	}
	require.NoError(t, db.Create(&pt).Error)
	require.NoError(t, db.Create(&PrayerCounter{
		ID:           counterID,
		PrayerTypeID: typeID,
		LastUpdated:  time.Now(),
	}).Error)
	return typeID
}

func loadCounter(t *testing.T, db *gorm.DB, typeID string) PrayerCounter {
	t.Helper()
	var counter PrayerCounter
	require.NoError(t, db.Where("prayer_type_id = ?", typeID).First(&counter).Error)
	return counter
}

func TestSubmit_FirstIncrement(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 1, true)
	engine := NewEngine(db, nil, 30*time.Second)

	result, err := engine.Submit(context.Background(), typeID, "user-a", "1.2.3.4", "test-agent")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int64(1), result.NewTotal)

	counter := loadCounter(t, db, typeID)
	require.Equal(t, int64(1), counter.TotalCount)
	require.Equal(t, int64(1), counter.UniqueContributors)

	var actions []PrayerAction
	require.NoError(t, db.Where("prayer_type_id = ?", typeID).Find(&actions).Error)
	require.Len(t, actions, 1)
	require.Equal(t, ActionIncrement, actions[0].ActionType)
	require.Equal(t, int64(1), actions[0].IncrementAmount)
	require.Equal(t, "user-a", actions[0].UserIdentifier)
	require.Equal(t, "1.2.3.4", actions[0].IPAddress)
}

func TestSubmit_ConfiguredIncrementValue(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 3, true)
	engine := NewEngine(db, nil, 30*time.Second)

	result, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int64(3), result.NewTotal)
	require.Equal(t, int64(3), loadCounter(t, db, typeID).TotalCount)
}

func TestSubmit_TimeKindAddsMinutes(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindTime, 15, true)
	engine := NewEngine(db, nil, 30*time.Second)

	result, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int64(15), result.NewTotal)

	counter := loadCounter(t, db, typeID)
	require.Equal(t, int64(15), counter.TotalTimeMinutes)
	require.Zero(t, counter.TotalCount)
}

func TestSubmit_WithinCooldownRejected(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 1, true)
	engine := NewEngine(db, nil, 30*time.Second)

	first, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)
	require.False(t, second.Success)
	require.Greater(t, second.SecondsToWait, 0)

	// 被拒绝的提交不得留下任何痕迹
	counter := loadCounter(t, db, typeID)
	require.Equal(t, int64(1), counter.TotalCount)
	require.Equal(t, int64(1), counter.UniqueContributors)

	var actionCount int64
	require.NoError(t, db.Model(&PrayerAction{}).Where("prayer_type_id = ?", typeID).Count(&actionCount).Error)
	require.Equal(t, int64(1), actionCount)
}

func TestSubmit_AfterCooldownAccepted(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 1, true)
	engine := NewEngine(db, nil, 50*time.Millisecond)

	first, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)
	require.True(t, first.Success)

	time.Sleep(60 * time.Millisecond)

	second, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)
	require.True(t, second.Success)

	// 同一身份的第二次提交不增加独立贡献者
	counter := loadCounter(t, db, typeID)
	require.Equal(t, int64(2), counter.TotalCount)
	require.Equal(t, int64(1), counter.UniqueContributors)
}

func TestSubmit_ConcurrentDistinctIdentities(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 2, true)
	engine := NewEngine(db, nil, 30*time.Second)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	results := make([]*SubmitResult, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity := fmt.Sprintf("user-%d", i)
			results[i], errs[i] = engine.Submit(context.Background(), typeID, identity, "", "")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.True(t, results[i].Success)
	}

	counter := loadCounter(t, db, typeID)
	require.Equal(t, int64(n*2), counter.TotalCount)
	require.Equal(t, int64(n), counter.UniqueContributors)
}

func TestSubmit_TypeNotFound(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, nil, 30*time.Second)

	_, err := engine.Submit(context.Background(), "no-such-type", "user-a", "", "")
	require.ErrorIs(t, err, ErrTypeNotFound)
}

func TestSubmit_DisabledType(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 1, false)
	engine := NewEngine(db, nil, 30*time.Second)

	_, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.ErrorIs(t, err, ErrTypeDisabled)

	require.Zero(t, loadCounter(t, db, typeID).TotalCount)
}

func TestPrayerType_FalseFlagsPersist(t *testing.T) {
	db := newTestDB(t)

	typeID, err := NewTypeID()
	require.NoError(t, err)
	require.NoError(t, db.Create(&PrayerType{
		ID:             typeID,
		Name:           "隐藏且停用",
		Kind:           KindCount,
		IncrementValue: 1,
		IsVisible:      false,
		IsEnabled:      false,
	}).Error)

	// false值必须原样落库，不能被列默认值悄悄覆盖为true
	var stored PrayerType
	require.NoError(t, db.Where("id = ?", typeID).First(&stored).Error)
	require.False(t, stored.IsVisible)
	require.False(t, stored.IsEnabled)
}

func TestAdminSetValue(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 1, true)
	engine := NewEngine(db, nil, 30*time.Second)

	// 先积累一些数据
	_, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)

	updated, err := engine.AdminSetValue(context.Background(), typeID, 500, "admin-1", "手动校正")
	require.NoError(t, err)
	require.Equal(t, int64(500), updated.TotalCount)
	// 覆盖总量不触碰独立贡献者
	require.Equal(t, int64(1), updated.UniqueContributors)

	var action PrayerAction
	require.NoError(t, db.Where("prayer_type_id = ? AND action_type = ?", typeID, ActionAdminEdit).
		First(&action).Error)
	require.Equal(t, int64(499), action.IncrementAmount)
	require.Equal(t, "admin-1", action.UserIdentifier)
	require.Equal(t, "手动校正", action.Note)
}

func TestAdminSetValue_RejectsNegative(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 1, true)
	engine := NewEngine(db, nil, 30*time.Second)

	_, err := engine.AdminSetValue(context.Background(), typeID, -1, "admin-1", "")
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestAdminReset_ZeroesAndIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 1, true)
	engine := NewEngine(db, nil, 30*time.Second)

	_, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)

	require.NoError(t, engine.AdminReset(context.Background(), typeID, "admin-1", "清零"))

	counter := loadCounter(t, db, typeID)
	require.Zero(t, counter.TotalCount)
	require.Zero(t, counter.TotalTimeMinutes)
	require.Zero(t, counter.UniqueContributors)

	// 对已经为零的计数器重复清零仍然成功，且仍然留痕
	require.NoError(t, engine.AdminReset(context.Background(), typeID, "admin-1", "再次清零"))

	var resetCount int64
	require.NoError(t, db.Model(&PrayerAction{}).
		Where("prayer_type_id = ? AND action_type = ?", typeID, ActionAdminReset).
		Count(&resetCount).Error)
	require.Equal(t, int64(2), resetCount)
}

func TestAdminReset_TimeKindRecordsMinutesDelta(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindTime, 15, true)
	engine := NewEngine(db, nil, 30*time.Second)

	_, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)

	require.NoError(t, engine.AdminReset(context.Background(), typeID, "admin-1", "清零"))

	// time类型的审计增量记录被清掉的分钟数
	var action PrayerAction
	require.NoError(t, db.Where("prayer_type_id = ? AND action_type = ?", typeID, ActionAdminReset).
		First(&action).Error)
	require.Equal(t, int64(-15), action.IncrementAmount)
}

func TestResetAll_ReportsPartialFailure(t *testing.T) {
	db := newTestDB(t)
	typeA := seedType(t, db, KindCount, 1, true)
	typeB := seedType(t, db, KindTime, 10, true)

	// 第三个类型没有计数器行，会清零失败
	orphanID, err := NewTypeID()
	require.NoError(t, err)
	require.NoError(t, db.Create(&PrayerType{ID: orphanID, Name: "孤儿类型", Kind: KindCount, IncrementValue: 1}).Error)

	engine := NewEngine(db, nil, 30*time.Second)
	_, err = engine.Submit(context.Background(), typeA, "user-a", "", "")
	require.NoError(t, err)
	_, err = engine.Submit(context.Background(), typeB, "user-a", "", "")
	require.NoError(t, err)

	result, err := engine.ResetAll(context.Background(), "admin-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.ResetCount)
	require.Equal(t, 1, result.FailedCount)

	require.Zero(t, loadCounter(t, db, typeA).TotalCount)
	require.Zero(t, loadCounter(t, db, typeB).TotalTimeMinutes)
}

// recordingNotifier 记录引擎发出的通知，验证只在成功提交后触发
type recordingNotifier struct {
	mu       sync.Mutex
	updated  []string
	accepted []string
}

func (n *recordingNotifier) CounterUpdated(typeID string, _ PrayerCounter) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, typeID)
}

func (n *recordingNotifier) SubmissionAccepted(typeID, identity string, _ time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, typeID+"/"+identity)
}

func TestSubmit_NotifierFiresOnlyOnSuccess(t *testing.T) {
	db := newTestDB(t)
	typeID := seedType(t, db, KindCount, 1, true)
	notifier := &recordingNotifier{}
	engine := NewEngine(db, notifier, 30*time.Second)

	first, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)
	require.True(t, first.Success)
	require.Equal(t, []string{typeID}, notifier.updated)
	require.Equal(t, []string{typeID + "/user-a"}, notifier.accepted)

	// 被冷却窗口拒绝的提交不触发任何通知
	second, err := engine.Submit(context.Background(), typeID, "user-a", "", "")
	require.NoError(t, err)
	require.False(t, second.Success)
	require.Len(t, notifier.updated, 1)
	require.Len(t, notifier.accepted, 1)
}
