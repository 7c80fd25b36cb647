package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/verinews/relayer/internal/model"
)

type fakeProvider struct {
	output string
	err    error
	prompt string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.output, f.err
}

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func TestParseClaims_SingleClaim(t *testing.T) {
	claims, err := ParseClaims(`{"claims": ["Paris is the capital of France."]}`)
	if err != nil {
		t.Fatalf("ParseClaims error: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}
	if claims[0].Text != "Paris is the capital of France." {
		t.Errorf("unexpected claim: %q", claims[0].Text)
	}
}

func TestParseClaims_EmptyArray(t *testing.T) {
	claims, err := ParseClaims(`{"claims": []}`)
	if err != nil {
		t.Fatalf("ParseClaims error: %v", err)
	}
	if len(claims) != 0 {
		t.Errorf("expected no claims, got %d", len(claims))
	}
}

func TestParseClaims_TruncatesToPolicy(t *testing.T) {
	claims, err := ParseClaims(`{"claims": ["first claim", "second claim", "third claim"]}`)
	if err != nil {
		t.Fatalf("ParseClaims error: %v", err)
	}
	if len(claims) != MaxClaims {
		t.Fatalf("expected %d claim(s), got %d", MaxClaims, len(claims))
	}
	if claims[0].Text != "first claim" {
		t.Errorf("expected first claim retained, got %q", claims[0].Text)
	}
}

func TestParseClaims_SurroundingProse(t *testing.T) {
	claims, err := ParseClaims("Here you go:\n{\"claims\": [\"water boils at 100C at sea level\"]}\nLet me know!")
	if err != nil {
		t.Fatalf("ParseClaims error: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}
}

func TestParseClaims_Errors(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"no JSON object", "there are no claims in this text"},
		{"invalid JSON", `{"claims": [`},
		{"missing claims field", `{"facts": ["x"]}`},
		{"claims not an array", `{"claims": "just one claim"}`},
		{"claims array of objects", `{"claims": [{"text": "x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClaims(tt.output)
			if err == nil {
				t.Fatalf("ParseClaims(%q) expected error", tt.output)
			}
			var parseErr *model.ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("expected *model.ParseError, got %T", err)
			}
		})
	}
}

func TestExtract_PromptContainsArticle(t *testing.T) {
	provider := &fakeProvider{output: `{"claims": ["the sky is blue"]}`}
	extractor := NewClaimExtractor(provider)

	article := "The sky is blue. I find it pretty."
	claims, err := extractor.Extract(context.Background(), article)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}
	if !strings.Contains(provider.prompt, article) {
		t.Error("prompt does not embed the article text")
	}
}

func TestExtract_ProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: &model.BrokerError{Err: errors.New("boom")}}
	extractor := NewClaimExtractor(provider)

	_, err := extractor.Extract(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	var brokerErr *model.BrokerError
	if !errors.As(err, &brokerErr) {
		t.Errorf("expected *model.BrokerError, got %T", err)
	}
}
