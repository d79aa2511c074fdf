package recipe

import (
	"regexp"
	"strings"

	"chefito-worker/internal/pkg/common"

	"go.uber.org/zap"
)

// rawTextLimit 解析失敗時回傳給呼叫端的原文長度上限
const rawTextLimit = 1000

var (
	fencePattern         = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	quoteReplacer        = strings.NewReplacer(
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	)
)

// extractStep 從同一段模型文字還原食譜清單的一種策略
type extractStep struct {
	name string
	fn   func(text string) ([]interface{}, bool)
}

// 由精確到寬鬆依序嘗試
var extractLadder = []extractStep{
	{name: "direct", fn: parseDirect},
	{name: "balanced", fn: parseFirstBalanced},
	{name: "objects", fn: parseAllObjects},
}

// ParseModelText 將模型輸出還原為原始食譜物件清單（尚未正規化）
func ParseModelText(text string) ([]interface{}, error) {
	for _, step := range extractLadder {
		if recipes, ok := step.fn(text); ok {
			common.LogDebug("Model text parsed",
				zap.String("strategy", step.name),
				zap.Int("recipes", len(recipes)),
			)
			return recipes, nil
		}
		common.LogDebug("Model text parse strategy failed", zap.String("strategy", step.name))
	}

	common.LogWarn("All parsing attempts failed", zap.Int("text_length", len(text)))
	return nil, common.NewParseError("Invalid JSON from model", nil).
		WithDetail("raw", common.Truncate(text, rawTextLimit))
}

// ExtractFenced 取出 ``` 區塊內容，沒有時回傳原文
func ExtractFenced(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// NormalizeJSONText 彎引號轉直引號並移除結尾逗號
func NormalizeJSONText(s string) string {
	s = quoteReplacer.Replace(s)
	return trailingCommaPattern.ReplaceAllString(s, "$1")
}

func parseDirect(text string) ([]interface{}, bool) {
	return decodeRecipes(ExtractFenced(text))
}

func parseFirstBalanced(text string) ([]interface{}, bool) {
	span, ok := FirstBalancedObject(text)
	if !ok {
		return nil, false
	}
	return decodeRecipes(span)
}

// parseAllObjects 收集所有頂層 {...}，逐一解析並包成 recipes
func parseAllObjects(text string) ([]interface{}, bool) {
	var recipes []interface{}
	for _, span := range BalancedObjects(text) {
		var v interface{}
		if err := common.ParseJSON(NormalizeJSONText(span), &v); err != nil {
			common.LogDebug("Skipping unparseable object", zap.Error(err))
			continue
		}
		obj, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		if inner, ok := obj["recipes"].([]interface{}); ok {
			recipes = append(recipes, inner...)
			continue
		}
		recipes = append(recipes, obj)
	}
	return recipes, len(recipes) > 0
}

func decodeRecipes(candidate string) ([]interface{}, bool) {
	var v interface{}
	if err := common.ParseJSON(NormalizeJSONText(candidate), &v); err != nil {
		return nil, false
	}
	return recipesFrom(v)
}

// recipesFrom 接受 {"recipes": [...]} 或頂層陣列
func recipesFrom(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		recipes, ok := t["recipes"].([]interface{})
		return recipes, ok
	case []interface{}:
		return t, true
	}
	return nil, false
}

// FirstBalancedObject 找出第一個括號平衡的 {...}，忽略字串內的括號
func FirstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// BalancedObjects 找出所有頂層的 {...} 區段
func BalancedObjects(s string) []string {
	var objects []string
	depth, startIdx := 0, -1
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			if depth == 0 {
				startIdx = i
			}
			depth++
		case '}':
			if depth == 0 {
				// 多餘的右括號
				continue
			}
			depth--
			if depth == 0 && startIdx != -1 {
				objects = append(objects, s[startIdx:i+1])
				startIdx = -1
			}
		}
	}
	return objects
}
