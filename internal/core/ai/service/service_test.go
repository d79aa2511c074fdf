package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"chefito-worker/internal/core/ai/provider"
	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"
)

// fakeProvider 依候選回傳預設結果，並記錄呼叫順序
type fakeProvider struct {
	mu      sync.Mutex
	results map[string]fakeResult
	calls   []string
	delay   time.Duration
}

type fakeResult struct {
	text string
	err  error
}

func (f *fakeProvider) Generate(ctx context.Context, c provider.Candidate, req *provider.Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c.Key())
	r, ok := f.results[c.Key()]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if !ok {
		return "", &provider.CallError{Status: http.StatusNotFound, Detail: "model not found"}
	}
	return r.text, r.err
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{"models/gemini-2.5-flash"}, nil
}

func (f *fakeProvider) Close() error { return nil }

func testGeminiConfig() *config.GeminiConfig {
	return &config.GeminiConfig{
		APIVersions: []string{"v1", "v1beta"},
		FallbackModels: []string{
			"v1/gemini-2.5-flash",
			"v1/gemini-2.0-flash",
			"v1beta/gemini-2.5-flash",
		},
		Temperature:     0.3,
		TopP:            0.85,
		MaxOutputTokens: 4096,
		MaxParallel:     2,
	}
}

func newTestService(t *testing.T, cfg *config.GeminiConfig, p provider.Provider) *Service {
	t.Helper()
	svc, err := NewService(cfg, p)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func keys(cs []provider.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Key()
	}
	return out
}

func TestCandidates(t *testing.T) {
	svc := newTestService(t, testGeminiConfig(), &fakeProvider{})

	tests := []struct {
		name      string
		userModel string
		want      []string
	}{
		{
			name: "fallbacks only",
			want: []string{"v1:gemini-2.5-flash", "v1:gemini-2.0-flash", "v1beta:gemini-2.5-flash"},
		},
		{
			name:      "user model first under every version",
			userModel: "gemini-pro",
			want: []string{
				"v1:gemini-pro", "v1beta:gemini-pro",
				"v1:gemini-2.5-flash", "v1:gemini-2.0-flash", "v1beta:gemini-2.5-flash",
			},
		},
		{
			name:      "user model duplicates a fallback",
			userModel: "models/gemini-2.5-flash",
			want:      []string{"v1:gemini-2.5-flash", "v1beta:gemini-2.5-flash", "v1:gemini-2.0-flash"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keys(svc.Candidates(tt.userModel))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Candidates(%q) = %v, want %v", tt.userModel, got, tt.want)
			}
		})
	}
}

func TestGenerate_FirstNonEmptyWins(t *testing.T) {
	p := &fakeProvider{results: map[string]fakeResult{
		"v1:gemini-2.5-flash":     {text: ""},
		"v1:gemini-2.0-flash":     {text: `{"recipes":[]}`},
		"v1beta:gemini-2.5-flash": {text: "should not be called"},
	}}
	svc := newTestService(t, testGeminiConfig(), p)

	gen, err := svc.Generate(context.Background(), "prompt", "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gen.Candidate.Key() != "v1:gemini-2.0-flash" {
		t.Errorf("winner = %s, want v1:gemini-2.0-flash", gen.Candidate.Key())
	}
	if len(p.calls) != 2 {
		t.Errorf("provider called %d times, want 2 (%v)", len(p.calls), p.calls)
	}
	if len(gen.Attempts) != 1 || gen.Attempts[0].Detail != "empty response text" {
		t.Errorf("Attempts = %+v", gen.Attempts)
	}
}

func TestGenerate_AllCandidatesFail(t *testing.T) {
	p := &fakeProvider{results: map[string]fakeResult{
		"v1:gemini-2.5-flash": {err: &provider.CallError{Status: http.StatusTooManyRequests, Detail: strings.Repeat("x", 800)}},
		"v1:gemini-pro":       {err: errors.New("connection reset")},
	}}
	svc := newTestService(t, testGeminiConfig(), p)

	_, err := svc.Generate(context.Background(), "prompt", "gemini-pro")
	ce, ok := common.AsCustomError(err)
	if !ok {
		t.Fatalf("error = %v, want *common.CustomError", err)
	}
	if ce.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", ce.Status)
	}
	if ce.Message != "Gemini failed for all candidates" {
		t.Errorf("Message = %q", ce.Message)
	}

	attempts, ok := ce.Details["attempts"].([]Attempt)
	if !ok {
		t.Fatalf("attempts detail = %T", ce.Details["attempts"])
	}
	if len(attempts) != 5 {
		t.Fatalf("got %d attempts, want 5", len(attempts))
	}

	seen := make(map[string]bool)
	for _, a := range attempts {
		key := a.API + ":" + a.Model
		if seen[key] {
			t.Errorf("duplicate attempt %s", key)
		}
		seen[key] = true
		if len([]rune(a.Detail)) > 500 {
			t.Errorf("attempt %s detail has %d runes, want <= 500", key, len([]rune(a.Detail)))
		}
	}

	if attempts[0].Status != http.StatusBadGateway || attempts[0].Detail != "connection reset" {
		t.Errorf("transport failure attempt = %+v", attempts[0])
	}
	if attempts[2].Status != http.StatusTooManyRequests {
		t.Errorf("provider status attempt = %+v", attempts[2])
	}
	if attempts[3].Status != http.StatusNotFound {
		t.Errorf("missing model attempt = %+v", attempts[3])
	}
}

func TestGenerate_ParallelMatchesSequential(t *testing.T) {
	results := map[string]fakeResult{
		"v1:gemini-2.5-flash":     {err: &provider.CallError{Status: 503, Detail: "overloaded"}},
		"v1:gemini-2.0-flash":     {text: "second"},
		"v1beta:gemini-2.5-flash": {text: "third"},
	}

	seq := newTestService(t, testGeminiConfig(), &fakeProvider{results: results})
	seqGen, err := seq.Generate(context.Background(), "prompt", "")
	if err != nil {
		t.Fatalf("sequential Generate() error = %v", err)
	}

	cfg := testGeminiConfig()
	cfg.Parallel = true
	par := newTestService(t, cfg, &fakeProvider{results: results, delay: 5 * time.Millisecond})
	parGen, err := par.Generate(context.Background(), "prompt", "")
	if err != nil {
		t.Fatalf("parallel Generate() error = %v", err)
	}

	if seqGen.Candidate != parGen.Candidate || seqGen.Text != parGen.Text {
		t.Errorf("parallel winner %s (%q), sequential %s (%q)",
			parGen.Candidate, parGen.Text, seqGen.Candidate, seqGen.Text)
	}
	if len(parGen.Attempts) != 1 || parGen.Attempts[0].Status != 503 {
		t.Errorf("parallel attempts = %+v", parGen.Attempts)
	}
}

func TestGenerate_DeadlineExceeded(t *testing.T) {
	p := &fakeProvider{delay: time.Second}
	svc := newTestService(t, testGeminiConfig(), p)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Generate(ctx, "prompt", "")
	ce, ok := common.AsCustomError(err)
	if !ok {
		t.Fatalf("error = %v, want *common.CustomError", err)
	}
	if ce.Status != http.StatusGatewayTimeout {
		t.Errorf("Status = %d, want 504", ce.Status)
	}
	if len(p.calls) != 1 {
		t.Errorf("provider called %d times after deadline, want 1", len(p.calls))
	}
}

func TestNewService_InvalidFallback(t *testing.T) {
	cfg := testGeminiConfig()
	cfg.FallbackModels = []string{"gemini-2.5-flash"}

	if _, err := NewService(cfg, &fakeProvider{}); err == nil {
		t.Error("NewService() error = nil, want invalid candidate error")
	}
	if _, err := NewService(testGeminiConfig(), nil); err == nil {
		t.Error("NewService() error = nil, want provider required error")
	}
}

func TestKnownVersions(t *testing.T) {
	cfg := testGeminiConfig()
	cfg.APIVersions = []string{"v1"}
	cfg.FallbackModels = append(cfg.FallbackModels, "v2alpha/gemini-next")

	got := KnownVersions(cfg)
	want := []string{"v1", "v1beta", "v2alpha"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("KnownVersions() = %v, want %v", got, want)
	}
}
