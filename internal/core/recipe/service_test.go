package recipe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"chefito-worker/internal/core/ai/provider"
	"chefito-worker/internal/core/ai/service"
	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"
)

type fakeGenerator struct {
	text   string
	err    error
	calls  int
	prompt string
	model  string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt, userModel string) (*service.Generation, error) {
	f.calls++
	f.prompt = prompt
	f.model = userModel
	if f.err != nil {
		return nil, f.err
	}
	return &service.Generation{
		Text:      f.text,
		Candidate: provider.Candidate{APIVersion: "v1", Model: "gemini-2.5-flash"},
	}, nil
}

func testConfig(apiKey string) *config.Config {
	return &config.Config{
		Gemini:  config.GeminiConfig{APIKey: apiKey},
		Recipes: config.RecipesConfig{DefaultMax: 3, MaxLimit: 10},
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	ce, ok := common.AsCustomError(err)
	if !ok {
		t.Fatalf("error = %v (%T), want *common.CustomError", err, err)
	}
	return ce.Status
}

func TestService_Generate_EmptyIngredients(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(gen, testConfig(""))

	_, err := svc.Generate(context.Background(), GenerateRequest{Max: 3})
	if got := statusOf(t, err); got != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", got)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
}

func TestService_Generate_MissingCredential(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(gen, testConfig(""))

	_, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"arroz"}})
	if got := statusOf(t, err); got != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", got)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
}

func TestService_Generate_Success(t *testing.T) {
	gen := &fakeGenerator{
		text: "```json\n" + `{"recipes":[
			{"title":"Arroz con huevo","used":["200g arroz","2 huevos"],"steps":["Cocer","Freír"]},
			{"title":"Vacía"},
			{"title":"Tortilla","used":["3 huevos"]},
			{"title":"Extra","steps":["x"]}
		]}` + "\n```",
	}
	svc := NewService(gen, testConfig("key"))

	result, err := svc.Generate(context.Background(), GenerateRequest{
		Ingredients: []string{"arroz", "huevos"},
		Max:         2,
		Prefs:       map[string]interface{}{"vegetarian": true},
		Model:       "gemini-pro",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Recipes) != 2 {
		t.Fatalf("got %d recipes, want 2", len(result.Recipes))
	}
	if result.Recipes[1].Title != "Tortilla" {
		t.Errorf("second recipe = %q, want Tortilla", result.Recipes[1].Title)
	}
	if result.Model != "gemini-2.5-flash" || result.APIVersion != "v1" {
		t.Errorf("winning candidate = %s/%s", result.APIVersion, result.Model)
	}
	if gen.model != "gemini-pro" {
		t.Errorf("model forwarded = %q, want gemini-pro", gen.model)
	}
	for _, want := range []string{"arroz, huevos", `{"vegetarian":true}`, "Máximo 2 recetas"} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestService_Generate_ClampsMax(t *testing.T) {
	gen := &fakeGenerator{text: `{"recipes":[]}`}
	svc := NewService(gen, testConfig("key"))

	result, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"sal"}, Max: 999})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(gen.prompt, "Máximo 10 recetas") {
		t.Error("max was not clamped to 10 in prompt")
	}
	if result.Recipes == nil || len(result.Recipes) != 0 {
		t.Errorf("Recipes = %v, want empty non-nil slice", result.Recipes)
	}
}

func TestService_Generate_Errors(t *testing.T) {
	upstream := common.NewError(common.ErrCodeUpstreamExhausted, "Gemini failed for all candidates", http.StatusBadGateway, nil)

	tests := []struct {
		name string
		gen  *fakeGenerator
		want int
	}{
		{"upstream exhausted", &fakeGenerator{err: upstream}, http.StatusBadGateway},
		{"unparsable text", &fakeGenerator{text: "no hay recetas"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.gen, testConfig("key"))
			_, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"papa"}})
			if got := statusOf(t, err); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("error identity preserved", func(t *testing.T) {
		svc := NewService(&fakeGenerator{err: upstream}, testConfig("key"))
		_, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"papa"}})
		if !errors.Is(err, upstream) {
			t.Errorf("error = %v, want upstream error", err)
		}
	})
}
