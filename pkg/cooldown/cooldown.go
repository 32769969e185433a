// Package cooldown 是客户端的本地冷却窗口记录。
// 它只是一个advisory优化：命中时客户端可以不发请求直接提示等待，
// 失效或损坏时放行，由服务端的权威检查兜底，因此所有失败都fail-open。
package cooldown

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	// AppName 是XDG目录下的应用子目录名
	AppName = "prayer-counter"
	// storeVersion 是缓存文件的格式版本
	storeVersion = "v1"
	// staleAfter 之前的记录在加载时被清除，约束文件体积
	staleAfter = time.Hour

	fileName = "cooldowns.json"
)

// entry 记录对某个类型最近一次成功提交
type entry struct {
	LastSubmit      time.Time `json:"lastSubmit"`
	CooldownSeconds int       `json:"cooldownSeconds"`
}

type store struct {
	Version string           `json:"version"`
	Entries map[string]entry `json:"entries"`
}

// Tracker 维护本地的冷却窗口记录
type Tracker struct {
	path  string
	state store
}

// Load 从XDG缓存目录加载冷却记录。
// 文件缺失、损坏或版本不匹配时从空白状态开始；过期记录在加载时清除。
func Load() *Tracker {
	t := &Tracker{
		path: filepath.Join(xdg.CacheHome, AppName, fileName),
		state: store{
			Version: storeVersion,
			Entries: make(map[string]entry),
		},
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		return t
	}

	var loaded store
	if json.Unmarshal(data, &loaded) != nil ||
		loaded.Version != storeVersion || loaded.Entries == nil {
		return t
	}

	// 清除过期记录
	cutoff := time.Now().Add(-staleAfter)
	for id, e := range loaded.Entries {
		if e.LastSubmit.After(cutoff) {
			t.state.Entries[id] = e
		}
	}
	return t
}

// CanSubmit 返回对该类型是否可以提交，以及需要等待的秒数。
func (t *Tracker) CanSubmit(prayerTypeID string) (bool, int) {
	e, ok := t.state.Entries[prayerTypeID]
	if !ok {
		return true, 0
	}

	cooldown := time.Duration(e.CooldownSeconds) * time.Second
	elapsed := time.Since(e.LastSubmit)
	if elapsed >= cooldown {
		return true, 0
	}
	return false, int(math.Ceil((cooldown - elapsed).Seconds()))
}

// Record 在一次成功提交后记录时间并落盘。存储失败只打印不报错。
func (t *Tracker) Record(prayerTypeID string, cooldownSeconds int) {
	t.state.Entries[prayerTypeID] = entry{
		LastSubmit:      time.Now(),
		CooldownSeconds: cooldownSeconds,
	}
	t.save()
}

func (t *Tracker) save() {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(t.path, data, 0o600)
}
