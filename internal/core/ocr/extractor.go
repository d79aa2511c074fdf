package ocr

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	lineSplitPattern = regexp.MustCompile(`\r?\n`)
	// 價格、貨幣符號、結帳字樣與 x2 之類的數量倍數；字樣只比對字首，避免 "oliva" 被當成 IVA
	noisePattern     = regexp.MustCompile(`(?i)(\d+[.,]\d{2})|\p{Sc}|\b(total|iva|subtotal|pago|cambio)|x\d+`)
	stripPattern     = regexp.MustCompile(`[^A-Za-zÁÉÍÓÚáéíóúÑñ\s]`)
	flatLabelPattern = regexp.MustCompile(`item|description|product|name`)
)

var (
	cellDescriptionLabels = labelSet("description", "producto", "item", "name")
	cellQuantityLabels    = labelSet("line_amount", "quantity", "qty", "cantidad")
	rowDescriptionLabels  = labelSet("description", "product_code", "item", "name", "producto")
)

// ExtractOptions 食材擷取選項
type ExtractOptions struct {
	// AppendQuantity 表格列有數量欄時，在清理後的食材後加上 " (數量)"
	AppendQuantity bool
}

// ExtractIngredients 從 OCR 回應中擷取去重後的食材字串，依發現順序回傳；永不失敗
func ExtractIngredients(raw []byte, opts ExtractOptions) []string {
	set := newCandidateSet()
	if !gjson.ValidBytes(raw) {
		return set.Items()
	}

	for _, result := range arrayOf(gjson.GetBytes(raw, "result")) {
		predictions := arrayOf(result.Get("prediction"))

		extractTableCells(set, predictions, opts)
		extractFlatFields(set, predictions)
		extractRowIndexed(set, predictions)
		extractLineItems(set, arrayOf(result.Get("line_items")))
		extractTextBlocks(set, arrayOf(result.Get("text_blocks")))
	}

	return set.Items()
}

// tableRow 同一列聚合的描述與數量
type tableRow struct {
	description string
	quantity    string
}

// orderedRows 以第一次出現的順序保存各列
type orderedRows struct {
	index map[string]*tableRow
	order []string
}

func newOrderedRows() *orderedRows {
	return &orderedRows{index: make(map[string]*tableRow)}
}

func (r *orderedRows) get(key string) *tableRow {
	row, ok := r.index[key]
	if !ok {
		row = &tableRow{}
		r.index[key] = row
		r.order = append(r.order, key)
	}
	return row
}

func (r *orderedRows) each(fn func(*tableRow)) {
	for _, key := range r.order {
		fn(r.index[key])
	}
}

func (row *tableRow) appendDescription(text string) {
	if row.description != "" {
		row.description += " "
	}
	row.description += text
}

// extractTableCells 表格型模型：cells 依 row 分組
func extractTableCells(set *candidateSet, predictions []gjson.Result, opts ExtractOptions) {
	for _, p := range predictions {
		cells := arrayOf(p.Get("cells"))
		if len(cells) == 0 {
			continue
		}

		rows := newOrderedRows()
		for _, cell := range cells {
			text := firstText(cell, "text")
			if text == "" {
				continue
			}
			label := strings.ToLower(cell.Get("label").String())
			row := rows.get(rowKey(cell.Get("row")))

			switch {
			case cellDescriptionLabels[label]:
				row.appendDescription(text)
			case cellQuantityLabels[label]:
				row.quantity = text
			}
		}

		rows.each(func(row *tableRow) {
			if row.description == "" {
				return
			}
			suffix := ""
			if opts.AppendQuantity && row.quantity != "" {
				suffix = " (" + row.quantity + ")"
			}
			set.push(row.description, suffix)
		})
	}
}

// extractFlatFields 一般欄位型預測
func extractFlatFields(set *candidateSet, predictions []gjson.Result) {
	for _, p := range predictions {
		label := strings.ToLower(p.Get("label").String())
		if !flatLabelPattern.MatchString(label) {
			continue
		}
		text := predictionText(p)
		if text == "" || strings.EqualFold(text, "table") {
			continue
		}
		set.push(text, "")
	}
}

// extractRowIndexed 帶 row_index 的非表格預測依列合併
func extractRowIndexed(set *candidateSet, predictions []gjson.Result) {
	rows := newOrderedRows()
	for _, p := range predictions {
		if len(arrayOf(p.Get("cells"))) > 0 {
			continue
		}
		text := predictionText(p)
		if text == "" || strings.EqualFold(text, "table") {
			continue
		}
		label := strings.ToLower(p.Get("label").String())
		row := rows.get(rowKey(p.Get("row_index")))
		if rowDescriptionLabels[label] {
			row.appendDescription(text)
		}
	}

	rows.each(func(row *tableRow) {
		if row.description != "" {
			set.push(row.description, "")
		}
	})
}

// extractLineItems 舊版回應格式
func extractLineItems(set *candidateSet, items []gjson.Result) {
	for _, li := range items {
		if desc := firstText(li, "description", "item", "name"); desc != "" {
			set.push(desc, "")
		}
	}
}

// extractTextBlocks 最後手段：整段文字區塊
func extractTextBlocks(set *candidateSet, blocks []gjson.Result) {
	for _, tb := range blocks {
		if text := firstText(tb, "text"); text != "" {
			set.push(text, "")
		}
	}
}

// arrayOf 只接受 JSON 陣列，其他型別視為缺少
func arrayOf(v gjson.Result) []gjson.Result {
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}

func predictionText(p gjson.Result) string {
	return firstText(p, "ocr_text", "text", "value")
}

// firstText 回傳第一個去除空白後非空的欄位
func firstText(v gjson.Result, keys ...string) string {
	for _, k := range keys {
		f := v.Get(k)
		if !f.Exists() || f.Type == gjson.Null || f.IsObject() || f.IsArray() {
			continue
		}
		if s := strings.TrimSpace(f.String()); s != "" {
			return s
		}
	}
	return ""
}

// rowKey 缺少或為 null 的列號視為 0
func rowKey(v gjson.Result) string {
	if !v.Exists() || v.Type == gjson.Null {
		return "0"
	}
	return v.String()
}

func labelSet(labels ...string) map[string]bool {
	m := make(map[string]bool, len(labels))
	for _, l := range labels {
		m[l] = true
	}
	return m
}

// candidateSet 保持插入順序的字串集合（區分大小寫）
type candidateSet struct {
	seen  map[string]struct{}
	items []string
}

func newCandidateSet() *candidateSet {
	return &candidateSet{seen: make(map[string]struct{})}
}

func (s *candidateSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

// Items 依插入順序回傳，沒有內容時回傳空切片
func (s *candidateSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// push 逐行清理文字後加入集合
func (s *candidateSet) push(text, suffix string) {
	for _, line := range lineSplitPattern.Split(text, -1) {
		if cleaned, ok := CleanLine(line); ok {
			s.add(cleaned + suffix)
		}
	}
}

// CleanLine 清理單行 OCR 文字；價格或結帳雜訊行回傳 false
func CleanLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || noisePattern.MatchString(line) {
		return "", false
	}
	cleaned := strings.TrimSpace(stripPattern.ReplaceAllString(line, ""))
	return cleaned, cleaned != ""
}
