package recipe

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestClampMax(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int
	}{
		{"missing", nil, 3},
		{"zero", json.Number("0"), 3},
		{"negative", -5, 3},
		{"too large", json.Number("999"), 10},
		{"number", json.Number("5"), 5},
		{"float", 2.7, 2},
		{"numeric string", "4", 4},
		{"garbage string", "abc", 3},
		{"limit", 10, 10},
		{"wrong type", []interface{}{1}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampMax(tt.in, 3, 10); got != tt.want {
				t.Errorf("ClampMax(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_CoercesFields(t *testing.T) {
	items := []interface{}{
		map[string]interface{}{
			"name":         "  Paella  ",
			"servings":     json.Number("4"),
			"time":         "45 minutos",
			"used":         []interface{}{"300g arroz", "", "   ", json.Number("2")},
			"instructions": []interface{}{"Sofreír", nil, "Cocer"},
			"tips":         "no es una lista",
			"description":  map[string]interface{}{"x": 1},
		},
	}

	got := Normalize(items, 3)
	if len(got) != 1 {
		t.Fatalf("got %d recipes, want 1", len(got))
	}

	want := Recipe{
		Title:       "Paella",
		Description: "",
		Servings:    "4",
		Time:        "45 minutos",
		Difficulty:  DefaultDifficulty,
		Used:        []string{"300g arroz", "2"},
		Missing:     []string{},
		Steps:       []string{"Sofreír", "Cocer"},
		Tips:        []string{},
		Variations:  []string{},
	}
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("Normalize() = %+v\nwant %+v", got[0], want)
	}
}

func TestNormalize_DropsInvalidAndTruncates(t *testing.T) {
	items := []interface{}{
		map[string]interface{}{"title": "Sin contenido"},
		"no es un objeto",
		map[string]interface{}{"steps": []interface{}{"Mezclar"}},
		map[string]interface{}{"title": "Dos", "used": []interface{}{"sal"}},
		map[string]interface{}{"title": "Tres", "used": []interface{}{"azúcar"}},
	}

	got := Normalize(items, 2)
	if len(got) != 2 {
		t.Fatalf("got %d recipes, want 2", len(got))
	}
	if got[0].Title != DefaultTitle {
		t.Errorf("first title = %q, want placeholder %q", got[0].Title, DefaultTitle)
	}
	if got[1].Title != "Dos" {
		t.Errorf("second title = %q, want Dos", got[1].Title)
	}
	for _, r := range got {
		if !r.Valid() {
			t.Errorf("invalid recipe in output: %+v", r)
		}
	}
}

func TestNormalize_KeepsDifficulty(t *testing.T) {
	got := Normalize([]interface{}{
		map[string]interface{}{"title": "Flan", "difficulty": "difícil", "steps": []interface{}{"Hornear"}},
	}, 1)
	if len(got) != 1 || got[0].Difficulty != "difícil" {
		t.Errorf("Normalize() = %+v, want difficulty difícil", got)
	}
}
