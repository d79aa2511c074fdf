package main

import (
	"chefito-worker/internal/core/recipe"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [model-output.txt]",
	Short: "Recover and normalize recipes from raw model output",
	Example: `  chefitoctl parse output.txt --max 5
  pbpaste | chefitoctl parse`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Int("max", 3, "Maximum number of recipes (clamped to 1-10)")
}

func runParse(cmd *cobra.Command, args []string) error {
	max, _ := cmd.Flags().GetInt("max")

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	raw, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	items, err := recipe.ParseModelText(string(raw))
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), recipe.GenerateResult{
		Recipes: recipe.Normalize(items, recipe.ClampMax(max, 3, 10)),
	})
}
