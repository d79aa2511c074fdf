package recipe

// Recipe 正規化後的食譜，欄位保證存在
type Recipe struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Servings    string   `json:"servings"`
	Time        string   `json:"time"`
	Difficulty  string   `json:"difficulty"`
	Used        []string `json:"used"`
	Missing     []string `json:"missing"`
	Steps       []string `json:"steps"`
	Tips        []string `json:"tips"`
	Variations  []string `json:"variations"`
}

// Valid 標題非空，且至少有一個使用食材或步驟
func (r Recipe) Valid() bool {
	return r.Title != "" && (len(r.Used) > 0 || len(r.Steps) > 0)
}

// GenerateRequest 食譜生成請求
type GenerateRequest struct {
	Ingredients []string
	Max         int
	Prefs       map[string]interface{}
	Model       string
}

// GenerateResult 食譜生成結果
type GenerateResult struct {
	Recipes    []Recipe `json:"recipes"`
	Model      string   `json:"model,omitempty"`
	APIVersion string   `json:"api,omitempty"`
}

const (
	// DefaultTitle 模型未給標題時的佔位標題
	DefaultTitle = "Receta"
	// DefaultDifficulty 預設難度
	DefaultDifficulty = "medium"
)
