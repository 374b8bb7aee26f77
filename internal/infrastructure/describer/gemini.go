// Package describer пишет пояснения к диагностическому отчёту с помощью LLM.
package describer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"dental-bot/internal/domain/entity"
	"dental-bot/internal/domain/port"
)

const DefaultModel = "gemini-1.5-flash"

// Gemini описатель отчёта на базе Gemini.
type Gemini struct {
	client   *genai.Client
	model    string
	language string
}

// NewGemini создаёт клиента Gemini. language — язык пояснения для пациента.
func NewGemini(ctx context.Context, apiKey, model, language string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	if model == "" {
		model = DefaultModel
	}
	if language == "" {
		language = "Russian"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, language: language}, nil
}

// Describe генерирует пояснение отчёта.
func (g *Gemini) Describe(ctx context.Context, report entity.DiagnosisReport) (*entity.Explanation, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(BuildPrompt(report, g.language)))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return nil, errors.New("gemini returned no text")
	}
	return &entity.Explanation{Text: text, Model: g.model}, nil
}

// Close закрывает клиента.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// BuildPrompt собирает запрос к модели из строк отчёта.
func BuildPrompt(report entity.DiagnosisReport, language string) string {
	var b strings.Builder
	b.WriteString("You are a dental assistant explaining an automated panoramic radiograph screening to a patient.\n")
	b.WriteString("The findings below were produced by a detection model and a rule-based Kennedy classification.\n")
	b.WriteString("Explain each finding in plain words, keep it under 120 words, do not add findings, ")
	b.WriteString("do not prescribe treatment and recommend confirming the results with a dentist.\n")
	fmt.Fprintf(&b, "Answer in %s.\n\nFindings:\n", language)
	for i, s := range report.Statements() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				parts = append(parts, string(txt))
			}
		}
		if len(parts) > 0 {
			break
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

var _ port.ReportDescriber = (*Gemini)(nil)
