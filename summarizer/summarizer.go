// Package summarizer turns correlation evidence into a short analyst gist and
// a contradiction assessment using an OpenAI-compatible chat model.
//
// The model only summarizes what the connectors already found; it is never
// asked to fetch or browse anything. Scores coming back from the model are on
// a 0-100 scale and are converted to 0.0-1.0 here.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

// Evidence is one finding handed to the model.
type Evidence struct {
	Source  string
	Title   string
	Content string
	URL     string
}

type SummaryInput struct {
	ScriptName   string
	OriginalGist string
	Evidence     []Evidence
}

type Summary struct {
	Gist       string   `json:"gist"`
	Confidence float64  `json:"confidence"`
	TopSignals []string `json:"topSignals"`
	Model      string   `json:"model"`
	TokensUsed int      `json:"tokensUsed,omitempty"`
}

type ContradictionInput struct {
	Gist     string
	Evidence []Evidence
}

type ContradictionAssessment struct {
	HasContradiction bool    `json:"hasContradiction"`
	Confidence       float64 `json:"confidence"`
	CounterEvidence  string  `json:"counterEvidence"`
}

// Summarizer is the capability the correlation aggregator depends on.
type Summarizer interface {
	Summarize(ctx context.Context, in SummaryInput) (*Summary, error)
	DetectContradiction(ctx context.Context, in ContradictionInput) (*ContradictionAssessment, error)
}

const (
	summarySystemPrompt       = "You are an expert analyst summarizing market signals from legal public sources. Provide concise, factual summaries with confidence scores."
	contradictionSystemPrompt = "You are a critical analyst looking for contradictions and counter-evidence in market signals."
	maxEvidenceInPrompt       = 15
)

// chatCompleter is the slice of the go-openai client we use.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI talks to any OpenAI-compatible endpoint (OpenAI, DeepSeek, local gateways).
type OpenAI struct {
	client  chatCompleter
	model   string
	timeout time.Duration
	log     *slog.Logger
}

// New returns nil when the capability is disabled (no key, or demo mode);
// the aggregator then falls back to its mechanical gist.
func New(cfg config.LLMConfig, demoMode bool, log *slog.Logger) *OpenAI {
	if cfg.APIKey == "" || demoMode {
		log.Info("Summarizer disabled (demo mode or missing API key)")
		return nil
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	log.Info("Initializing summarizer", "model", model, "base_url", oc.BaseURL)
	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		timeout: cfg.Timeout,
		log:     log,
	}
}

func (o *OpenAI) complete(ctx context.Context, system, prompt string, temperature float32, maxTokens int) (openai.ChatCompletionResponse, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return resp, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return resp, fmt.Errorf("no response from model %s", o.model)
	}
	return resp, nil
}

func (o *OpenAI) Summarize(ctx context.Context, in SummaryInput) (*Summary, error) {
	o.log.Info("Summarization started", "sources", len(in.Evidence), "model", o.model)
	resp, err := o.complete(ctx, summarySystemPrompt, BuildSummaryPrompt(in), 0.3, 300)
	if err != nil {
		return nil, err
	}
	s := ParseSummary(resp.Choices[0].Message.Content)
	s.Model = resp.Model
	s.TokensUsed = resp.Usage.TotalTokens
	o.log.Info("Summarization complete", "tokens", s.TokensUsed, "confidence", s.Confidence)
	return s, nil
}

func (o *OpenAI) DetectContradiction(ctx context.Context, in ContradictionInput) (*ContradictionAssessment, error) {
	resp, err := o.complete(ctx, contradictionSystemPrompt, BuildContradictionPrompt(in), 0.5, 200)
	if err != nil {
		return nil, err
	}
	return ParseContradiction(resp.Choices[0].Message.Content), nil
}

func writeEvidence(b *strings.Builder, evidence []Evidence) {
	if len(evidence) == 0 {
		b.WriteString("(no public sources returned results)\n")
		return
	}
	for i, e := range evidence {
		if i == maxEvidenceInPrompt {
			break
		}
		fmt.Fprintf(b, "%d. [%s] %s", i+1, e.Source, e.Title)
		if e.Content != "" {
			b.WriteString(" - " + e.Content)
		}
		if e.URL != "" {
			fmt.Fprintf(b, " (%s)", e.URL)
		}
		b.WriteString("\n")
	}
}

func BuildSummaryPrompt(in SummaryInput) string {
	var b strings.Builder
	b.WriteString("Analyze the following market signal and correlation sources from legal public APIs.\n\n")
	fmt.Fprintf(&b, "Signal: %s\nOriginal gist: %s\n\nPublic sources found:\n", in.ScriptName, in.OriginalGist)
	writeEvidence(&b, in.Evidence)
	b.WriteString(`
Provide:
1. A concise summary (max 120 words) confirming or adjusting the original signal
2. Confidence score (0-100) based on source quality and consensus
3. Top 3 key signals/patterns that informed your analysis

Format:
SUMMARY: [your summary]
CONFIDENCE: [0-100]
SIGNALS: [signal1], [signal2], [signal3]`)
	return b.String()
}

func BuildContradictionPrompt(in ContradictionInput) string {
	var b strings.Builder
	b.WriteString("Analyze the following market signal summary and sources. Find any contradictory evidence or conflicting information.\n\n")
	fmt.Fprintf(&b, "Summary: %s\n\nSources:\n", in.Gist)
	writeEvidence(&b, in.Evidence)
	b.WriteString(`
Provide:
1. Whether contradictions exist (YES/NO)
2. Confidence level (0-100)
3. Brief explanation of contradictions found

Format: CONTRADICTION: YES/NO | CONFIDENCE: XX | EVIDENCE: explanation`)
	return b.String()
}
