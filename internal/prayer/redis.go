package prayer

// 定义prayer模块管理的Redis键名
const (
	// CountersKey 是一个Redis Hash，存储所有计数器的当前值
	// Field: PrayerType ID
	// Value: PrayerCounter 的JSON序列化字符串
	CountersKey = "prayer:counters"

	// UpdateChannel 是计数器变化的Pub/Sub通道，供实时推送层订阅
	UpdateChannel = "prayer:counter_updates"

	// cooldownKeyPrefix 是每个类型的冷却窗口有序集合的键名前缀
	// Member: 匿名身份标识, Score: 最近一次成功提交的微秒时间戳
	cooldownKeyPrefix = "prayer:cooldown:"
)
