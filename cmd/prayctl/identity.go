package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitanova-team/prayer-counter-backend/pkg/identity"
)

var identityResetFlag bool

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "查看或重置本机的匿名身份",
	RunE:  runIdentity,
}

func init() {
	identityCmd.Flags().BoolVar(&identityResetFlag, "reset", false, "删除当前身份，下次提交时生成新身份")
}

func runIdentity(cmd *cobra.Command, args []string) error {
	if identityResetFlag {
		if err := identity.Reset(); err != nil {
			return fmt.Errorf("无法重置身份: %w", err)
		}
		fmt.Println("身份已重置。")
		return nil
	}

	fmt.Println(identity.Load())
	return nil
}
