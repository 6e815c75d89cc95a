package cli

import (
	"github.com/spf13/cobra"

	"campaign-alerts/internal/app"
)

var simulateOpts app.SimulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次告警评估并推送到已配置的通道",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), simulateOpts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateOpts.Client, "client", "", "合成数据使用的酒店名称")
	simulateCmd.Flags().StringVar(&simulateOpts.CSVPath, "csv", "", "使用 CSV 导出的投放数据代替合成数据")
}
