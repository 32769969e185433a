package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/vitanova-team/prayer-counter-backend/pkg/cooldown"
	"github.com/vitanova-team/prayer-counter-backend/pkg/identity"
)

// defaultCooldownSeconds 是本地冷却记录的默认窗口。
// 服务端在429响应中给出准确的剩余秒数，本地值只用于少发无效请求。
const defaultCooldownSeconds = 30

var submitCmd = &cobra.Command{
	Use:   "submit <prayer-type-id>",
	Short: "提交一次祷告",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	prayerTypeID := args[0]
	userID := identity.Load()

	// 1. 本地advisory检查，命中时不发请求
	tracker := cooldown.Load()
	if ok, wait := tracker.CanSubmit(prayerTypeID); !ok {
		fmt.Printf("提交过于频繁，请 %d 秒后再试。\n", wait)
		return nil
	}

	// 2. 调用服务端的权威接口
	result, status, err := newAPIClient().submitIncrement(prayerTypeID, userID)
	if err != nil {
		return fmt.Errorf("提交失败: %w", err)
	}

	switch {
	case status == http.StatusOK && result.Success:
		tracker.Record(prayerTypeID, defaultCooldownSeconds)
		fmt.Printf("%s (当前累计 %d)\n", result.Message, result.NewTotal)
	case status == http.StatusTooManyRequests:
		// 服务端的权威判定覆盖本地记录
		if result.SecondsToWait > 0 {
			tracker.Record(prayerTypeID, result.SecondsToWait)
		}
		fmt.Printf("提交过于频繁，请 %d 秒后再试。\n", result.SecondsToWait)
	default:
		fmt.Printf("提交未被接受: %s\n", result.Message)
	}
	return nil
}
