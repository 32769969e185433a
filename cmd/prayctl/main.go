// prayctl 是祷告计数服务的命令行客户端。
// 它复用前端同款的匿名身份与本地冷却记录，直接调用公开API。
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// 全局flag
var flagServer string

// rootCmd 是不带子命令时的基础命令
var rootCmd = &cobra.Command{
	Use:   "prayctl",
	Short: "祷告计数服务的命令行客户端",
	Long: `prayctl 通过公开API与祷告计数服务交互。

示例:
  prayctl list
  prayctl submit 0190c2a6-3f1e-7000-8000-000000000001
  prayctl identity`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8080", "服务地址")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(identityCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
