package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/releasegate/riskadvisor/internal/config"
	"github.com/releasegate/riskadvisor/internal/models"
)

const systemPrompt = "You are a release risk advisor. Given structured data about a " +
	"pending software release, produce a concise risk summary in 3-5 sentences: a " +
	"plain-English summary of the risk, the single most important thing to watch, " +
	"and whether this looks similar to a specific past incident and why."

// OpenAI generates narrative summaries through a chat-completion API.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAI constructs the LLM summarizer from configuration. The caller
// decides whether to use it via the summarizer capability flag; this
// constructor only validates credentials.
func NewOpenAI(cfg config.SummarizerConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarizer API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Summarize calls the chat-completion API with the assessment rendered
// into a prompt. Errors propagate so the caller can fall back to the
// template.
func (o *OpenAI) Summarize(ctx context.Context, a models.RiskAssessment, feature, service, platform string) (models.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(a, feature, service, platform)},
		},
	})
	if err != nil {
		return models.Summary{}, fmt.Errorf("summarizer completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Summary{}, fmt.Errorf("summarizer returned no choices")
	}

	o.logger.Debug("summary generated", slog.String("model", o.model))
	return models.Summary{
		Text:   resp.Choices[0].Message.Content,
		Source: models.SummaryGenerated,
	}, nil
}

func buildPrompt(a models.RiskAssessment, feature, service, platform string) string {
	if platform == "" {
		platform = "all"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Feature: %s\nService: %s\nPlatform: %s\n", feature, service, platform)
	fmt.Fprintf(&b, "Risk Score: %d/100\nRecommendation: %s\n\n", a.RiskScore, a.Recommendation)
	fmt.Fprintf(&b, "Score Breakdown:\n")
	fmt.Fprintf(&b, "  - Similarity to past rollbacks: %.1f/50\n", a.SimilarityScore)
	fmt.Fprintf(&b, "  - SLI volatility: %.1f/30\n", a.VolatilityScore)
	fmt.Fprintf(&b, "  - Current anomalies: %.1f/20\n\n", a.AnomalyScore)

	b.WriteString("Top Risk Drivers:\n")
	for _, d := range a.TopRiskDrivers {
		fmt.Fprintf(&b, "  - %s\n", d)
	}

	b.WriteString("\nMatched Historical Rollback Patterns:\n")
	if len(a.MatchedSignatures) == 0 {
		b.WriteString("  None found\n")
	}
	for _, m := range a.MatchedSignatures {
		fmt.Fprintf(&b, "  - %s (%s, %s): %s [similarity: %.3f]\n",
			m.RevertID, m.Feature, truncateDate(m.Date), m.Description, m.Similarity)
	}
	return b.String()
}
