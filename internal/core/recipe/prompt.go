package recipe

import (
	"encoding/json"
	"fmt"
	"strings"
)

const recipeSchema = `{
  "recipes": [
    {
      "title": "Nombre de la receta",
      "description": "Descripción de 1-2 líneas del plato",
      "servings": "número de porciones",
      "time": "tiempo total (ej: 30 minutos)",
      "difficulty": "fácil/medio/difícil",
      "used": ["300g arroz", "2 huevos"],
      "missing": ["ingrediente opcional"],
      "steps": ["PASO 1 (PREPARACIÓN): ...", "PASO 2 (COCCIÓN): ..."],
      "tips": ["Consejo profesional"],
      "variations": ["Sustitución alternativa"]
    }
  ]
}`

// BuildPrompt 組裝食譜生成 prompt：食材、偏好與固定 JSON 結構
func BuildPrompt(ingredients []string, prefs map[string]interface{}, max int) string {
	if prefs == nil {
		prefs = map[string]interface{}{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		prefsJSON = []byte("{}")
	}

	var sb strings.Builder
	sb.WriteString("Eres un chef experto. Crea recetas DETALLADAS, ESPECÍFICAS y COMPLETAS en español.\n")
	sb.WriteString("Responde SOLO con JSON válido. SIN markdown, SIN comillas invertidas.\n")
	sb.WriteString("Estructura JSON EXACTA:\n")
	sb.WriteString(recipeSchema)
	sb.WriteString("\nREQUISITOS:\n")
	sb.WriteString("- Todos los títulos, descripciones y pasos deben estar en español.\n")
	sb.WriteString("- Cada paso debe tener 3-4 oraciones con temperaturas en Celsius, tiempos precisos y señales de color, olor o textura.\n")
	sb.WriteString("- \"used\" debe incluir CANTIDAD UNIDAD INGREDIENTE (ej: \"50g mantequilla\", \"3 dientes ajo\"), sin rangos.\n")
	sb.WriteString(fmt.Sprintf("- Máximo %d recetas.\n", max))
	sb.WriteString("- Maximiza el uso de los ingredientes disponibles.\n")
	sb.WriteString("- Cada receta debe tener al menos 5 pasos y 1 ingrediente con cantidad.\n")
	sb.WriteString("- Dificultad: fácil (sin habilidades especiales), medio (habilidades básicas), difícil (técnicas avanzadas).\n")
	sb.WriteString(fmt.Sprintf("Ingredientes disponibles: %s\n", strings.Join(ingredients, ", ")))
	sb.WriteString(fmt.Sprintf("Preferencias: %s\n", prefsJSON))
	sb.WriteString("Responde SOLO con el JSON. Nada más. Sin explicaciones.")
	return sb.String()
}
