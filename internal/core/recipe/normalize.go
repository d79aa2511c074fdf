package recipe

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalize 將模型回傳的原始物件轉成 Recipe，過濾無效者並截斷至 max 筆
func Normalize(items []interface{}, max int) []Recipe {
	recipes := make([]Recipe, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		r := normalizeOne(obj)
		if !r.Valid() {
			continue
		}
		recipes = append(recipes, r)
		if max > 0 && len(recipes) >= max {
			break
		}
	}
	return recipes
}

func normalizeOne(obj map[string]interface{}) Recipe {
	title := stringify(firstPresent(obj, "title", "name"))
	if title == "" {
		title = DefaultTitle
	}
	difficulty := stringify(obj["difficulty"])
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}
	steps := stringSlice(obj["steps"])
	if len(steps) == 0 {
		steps = stringSlice(obj["instructions"])
	}

	return Recipe{
		Title:       title,
		Description: stringify(obj["description"]),
		Servings:    stringify(obj["servings"]),
		Time:        stringify(obj["time"]),
		Difficulty:  difficulty,
		Used:        stringSlice(obj["used"]),
		Missing:     stringSlice(obj["missing"]),
		Steps:       steps,
		Tips:        stringSlice(obj["tips"]),
		Variations:  stringSlice(obj["variations"]),
	}
}

// firstPresent 回傳第一個非空的欄位值
func firstPresent(obj map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := obj[k]; ok && stringify(v) != "" {
			return v
		}
	}
	return nil
}

// stringify 純量轉字串並去除前後空白；null、物件與陣列視為空字串
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]interface{}, []interface{}:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// stringSlice 非陣列回傳空切片；元素轉字串後去除空白項
func stringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s := stringify(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ClampMax 解析請求中的 max：缺少或非正數用預設值，超過上限則截到上限
func ClampMax(v interface{}, def, limit int) int {
	n, ok := toInt(v)
	if !ok || n <= 0 {
		n = def
	}
	if n > limit {
		n = limit
	}
	return n
}

func toInt(v interface{}) (int, bool) {
	var f float64
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, true
	}
	return int(math.Floor(f)), true
}
