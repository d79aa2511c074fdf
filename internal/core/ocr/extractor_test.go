package ocr

import (
	"reflect"
	"testing"
)

func TestExtractIngredients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		opts ExtractOptions
		want []string
	}{
		{
			name: "table cells grouped by row",
			raw: `{"result":[{"prediction":[{"label":"table","ocr_text":"table","cells":[
				{"row":1,"label":"description","text":"Leche entera"},
				{"row":1,"label":"quantity","text":"2"},
				{"row":2,"label":"description","text":"Pan"},
				{"row":2,"label":"Description","text":"integral"},
				{"row":3,"label":"line_amount","text":"1.99"},
				{"label":"item","text":"Huevos"}
			]}]}]}`,
			want: []string{"Leche entera", "Pan integral", "Huevos"},
		},
		{
			name: "table cells with quantity suffix",
			raw: `{"result":[{"prediction":[{"cells":[
				{"row":1,"label":"description","text":"Leche entera"},
				{"row":1,"label":"qty","text":"2"},
				{"row":2,"label":"producto","text":"Pan"}
			]}]}]}`,
			opts: ExtractOptions{AppendQuantity: true},
			want: []string{"Leche entera (2)", "Pan"},
		},
		{
			name: "flat fields with noise and text blocks",
			raw: `{"result":[{"prediction":[
				{"label":"item_name","ocr_text":"Tomates\nTOTAL 12,50"},
				{"label":"Description","text":"Cebolla x2"},
				{"label":"price","ocr_text":"3.50"},
				{"label":"product","value":"Ajo"},
				{"label":"name","ocr_text":"table"}
			],"text_blocks":[{"text":"Aceite de girasol"},{"text":"IVA 21%"},{"text":"Tomates"}]}]}`,
			want: []string{"Tomates", "Ajo", "Aceite de girasol"},
		},
		{
			name: "row indexed predictions are joined",
			raw: `{"result":[{"prediction":[
				{"label":"description","ocr_text":"Queso","row_index":1},
				{"label":"producto","ocr_text":"fresco","row_index":1},
				{"label":"description","ocr_text":"Arroz","row_index":2}
			]}]}`,
			want: []string{"Queso", "fresco", "Arroz", "Queso fresco"},
		},
		{
			name: "legacy line items",
			raw:  `{"result":[{"line_items":[{"description":"Manzanas"},{"item":"Peras 2,99"},{"name":"Uvas"},{"price":"1"}]}]}`,
			want: []string{"Manzanas", "Uvas"},
		},
		{
			name: "multiple results keep first-seen order",
			raw:  `{"result":[{"text_blocks":[{"text":"Sal\nazúcar"}]},{"text_blocks":[{"text":"Sal"},{"text":"sal"}]}]}`,
			want: []string{"Sal", "azúcar", "sal"},
		},
		{
			name: "mistyped fields are ignored",
			raw:  `{"result":[{"prediction":{"label":"item"},"text_blocks":[{"text":null},{"text":["x"]},{"text":"Limón"}]}]}`,
			want: []string{"Limón"},
		},
		{
			name: "non-array containers are treated as missing",
			raw: `{"result":[
				{"prediction":{"label":"item","ocr_text":"Pan"}},
				{"prediction":[{"cells":{"row":1,"label":"description","text":"Leche"}}]},
				{"line_items":{"description":"Manzanas"},"text_blocks":{"text":"Sal"}}
			]}`,
			want: []string{},
		},
		{
			name: "result object is ignored",
			raw:  `{"result":{"text_blocks":[{"text":"Sal"}]}}`,
			want: []string{},
		},
		{
			name: "no result",
			raw:  `{"message":"Success"}`,
			want: []string{},
		},
		{
			name: "invalid json",
			raw:  `<html>`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractIngredients([]byte(tt.raw), tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractIngredients() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanLine(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"  Café 1kg ", "Café kg", true},
		{"Jamón-serrano!", "Jamónserrano", true},
		{"Ñoquis", "Ñoquis", true},
		{"€ 3", "", false},
		{"$ 4", "", false},
		{"Subtotal", "", false},
		{"Pago tarjeta", "", false},
		{"Cambio", "", false},
		{"Pasta X3", "", false},
		{"Arroz 1,25", "", false},
		{"123", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		got, ok := CleanLine(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("CleanLine(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

// 結帳字樣只比對字首：字尾含 "iva"、"total" 的食材保留
func TestCleanLine_KeywordsMatchAtWordStart(t *testing.T) {
	tests := []struct {
		in     string
		wantOK bool
	}{
		{"Aceite de oliva", true},
		{"Salsa nativa", true},
		{"IVA21%", false},
		{"iva incluido", false},
		{"Subtotal", false},
		{"TOTAL A PAGAR", false},
	}

	for _, tt := range tests {
		if _, ok := CleanLine(tt.in); ok != tt.wantOK {
			t.Errorf("CleanLine(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
		}
	}
}
