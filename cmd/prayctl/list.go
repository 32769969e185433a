package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出可见的祷告类型及实时计数",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	prayers, err := newAPIClient().listPrayers()
	if err != nil {
		return fmt.Errorf("无法获取祷告列表: %w", err)
	}

	if len(prayers) == 0 {
		fmt.Println("当前没有可见的祷告类型。")
		return nil
	}

	for _, p := range prayers {
		var total string
		if p.Type.Kind == "time" {
			total = fmt.Sprintf("%d 分钟", p.Counter.TotalTimeMinutes)
		} else {
			total = fmt.Sprintf("%d 次", p.Counter.TotalCount)
		}
		fmt.Printf("%s  %s\n    累计 %s · %d 位参与者\n",
			p.Type.ID, p.Type.Name, total, p.Counter.UniqueContributors)
	}
	return nil
}
