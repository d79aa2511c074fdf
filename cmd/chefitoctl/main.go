package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "chefitoctl",
	Short: "chefitoctl - 在本機執行 OCR 食材擷取與食譜生成流程",
	Long: `chefitoctl 以命令列執行與 HTTP 服務相同的流程：

  extract   將 Nanonets OCR 回應 JSON 轉成食材清單
  parse     將模型輸出文字還原並正規化為食譜
  generate  以食材呼叫 Gemini 生成食譜
  models    列出 Gemini 可用模型

設定與 HTTP 服務共用（.env、GOOGLE_API_KEY 等環境變數）。`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			return nil
		}
		return common.InitLogger(level, "")
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Enable logging at the given level (debug, info, warn, error)")
}

func main() {
	defer common.Sync()

	if err := rootCmd.Execute(); err != nil {
		common.LogError("Command execution failed", zap.Error(err))
		writeError(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 讀取與 HTTP 服務相同的設定
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// readInput 讀取檔案內容；路徑為 "-" 或空字串時讀 stdin
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// writeJSON 以縮排 JSON 輸出
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeError 將 CustomError 以與 HTTP 回應相同的形狀輸出
func writeError(w io.Writer, err error) {
	ce, ok := common.AsCustomError(err)
	if !ok {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	body := map[string]interface{}{}
	for k, v := range ce.Details {
		body[k] = v
	}
	body["error"] = ce.Message
	body["code"] = ce.Code
	body["status"] = ce.Status
	_ = writeJSON(w, body)
}
