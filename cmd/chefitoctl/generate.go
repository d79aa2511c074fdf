package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chefito-worker/internal/core/ai/gemini"
	"chefito-worker/internal/core/ai/service"
	"chefito-worker/internal/core/recipe"
	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <ingredient> [ingredient...]",
	Short: "Generate recipes from ingredients with Gemini",
	Example: `  chefitoctl generate arroz huevos cebolla --max 2
  chefitoctl generate "pechuga de pollo" limón --model gemini-2.5-flash --prefs '{"vegetarian":false}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List Gemini models available to the configured API key",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(modelsCmd)

	generateCmd.Flags().Int("max", 0, "Maximum number of recipes (default from config)")
	generateCmd.Flags().String("model", "", "Preferred model, tried under every API version first")
	generateCmd.Flags().String("prefs", "{}", "Preferences as a JSON object")
}

// newAIService 依設定建立 AI 服務
func newAIService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	p, err := gemini.NewProvider(ctx, &cfg.Gemini, service.KnownVersions(&cfg.Gemini))
	if err != nil {
		return nil, err
	}
	return service.NewService(&cfg.Gemini, p)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	max, _ := cmd.Flags().GetInt("max")
	model, _ := cmd.Flags().GetString("model")
	prefsJSON, _ := cmd.Flags().GetString("prefs")

	prefs := map[string]interface{}{}
	if strings.TrimSpace(prefsJSON) != "" {
		if err := common.ParseJSON(prefsJSON, &prefs); err != nil {
			return fmt.Errorf("invalid --prefs: %w", err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if cfg.Server.RequestTimeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, cfg.Server.RequestTimeout)
		defer timeoutCancel()
	}

	aiService, err := newAIService(ctx, cfg)
	if err != nil {
		return err
	}
	defer aiService.Close()

	recipes := recipe.NewService(aiService, cfg)
	result, err := recipes.Generate(ctx, recipe.GenerateRequest{
		Ingredients: args,
		Max:         recipes.ClampMax(max),
		Prefs:       prefs,
		Model:       model,
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Gemini.APIKey == "" {
		return common.NewConfigurationError("Missing GOOGLE_API_KEY")
	}

	ctx, cancel := signalContext()
	defer cancel()

	aiService, err := newAIService(ctx, cfg)
	if err != nil {
		return err
	}
	defer aiService.Close()

	models, err := aiService.ListModels(ctx)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"models": models})
}
