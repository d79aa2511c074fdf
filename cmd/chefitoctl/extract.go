package main

import (
	"chefito-worker/internal/core/ocr"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [ocr-response.json]",
	Short: "Extract ingredient names from a Nanonets OCR response",
	Example: `  chefitoctl extract response.json
  cat response.json | chefitoctl extract --append-quantity`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().Bool("append-quantity", false, "Append table quantities as \" (qty)\"")
}

func runExtract(cmd *cobra.Command, args []string) error {
	appendQty, _ := cmd.Flags().GetBool("append-quantity")

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	raw, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	ingredients := ocr.ExtractIngredients(raw, ocr.ExtractOptions{AppendQuantity: appendQty})
	return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
		"ingredients": ingredients,
		"count":       len(ingredients),
	})
}
