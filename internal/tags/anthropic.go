package tags

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"

	"github.com/repolens/repolens/internal/types"
)

// ModelHaiku is the default model for tag extraction. Tagging is a
// simple classification task; the cost-efficient tier is sufficient.
const ModelHaiku = "claude-3-5-haiku-20241022"

// DefaultModel returns the extraction model, checking REPOLENS_MODEL
// env var first.
func DefaultModel() string {
	if model := os.Getenv("REPOLENS_MODEL"); model != "" {
		return model
	}
	return ModelHaiku
}

// AnthropicConfig holds configuration for the AI-backed extractor.
type AnthropicConfig struct {
	APIKey             string        // Anthropic API key (if empty, reads from ANTHROPIC_API_KEY env var)
	Model              string        // Model to use (default: claude-3-5-haiku-20241022)
	Timeout            time.Duration // Per-request timeout (default: 30s)
	MaxConcurrentCalls int           // Maximum concurrent API calls (default: 3, 0 = unlimited)
}

// AnthropicExtractor extracts tags via the Anthropic Messages API. The
// extractor is safe for concurrent use: the underlying HTTP client is
// shared read-only across repository workers, and a weighted semaphore
// caps in-flight API calls.
type AnthropicExtractor struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	sem     *semaphore.Weighted
}

// NewAnthropicExtractor creates an AI-backed tag extractor.
func NewAnthropicExtractor(cfg *AnthropicConfig) (*AnthropicExtractor, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var sem *semaphore.Weighted
	if cfg.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls))
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicExtractor{
		client:  &client,
		model:   model,
		timeout: timeout,
		sem:     sem,
	}, nil
}

// Name implements Extractor.
func (e *AnthropicExtractor) Name() string {
	return "ai"
}

// ExtractTags sends the issue to the Anthropic API and parses the
// response into tags. Every failure mode (transport, timeout, empty or
// unparsable response) is reported as an ExtractionError; callers fall
// back per issue, there is no retry and no circuit breaker here.
func (e *AnthropicExtractor) ExtractTags(ctx context.Context, issue *types.IssueRecord) ([]string, error) {
	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return nil, &ExtractionError{Op: "acquire", Err: err}
		}
		defer e.sem.Release(1)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	startTime := time.Now()
	response, err := e.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildTagPrompt(issue))),
		},
	})
	if err != nil {
		return nil, &ExtractionError{Op: "api_call", Err: err}
	}

	var responseText string
	for _, block := range response.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	extracted, err := parseTagResponse(responseText)
	if err != nil {
		return nil, &ExtractionError{Op: "parse", Err: err}
	}

	fmt.Printf("AI tag extraction for %s: %d tags, input=%d tokens, output=%d tokens, duration=%v\n",
		issue.Key(), len(extracted), response.Usage.InputTokens, response.Usage.OutputTokens, time.Since(startTime))

	return extracted, nil
}

// buildTagPrompt builds the structured extraction prompt from the
// issue's repository, title, description, state, and existing labels.
func buildTagPrompt(issue *types.IssueRecord) string {
	var sb strings.Builder

	sb.WriteString("Analyze this software repository issue and extract 5-8 short topic tags.\n\n")
	sb.WriteString(fmt.Sprintf("Repository: %s\n", issue.Repository))
	sb.WriteString(fmt.Sprintf("Issue #%d: %s\n", issue.Number, issue.Title))
	sb.WriteString(fmt.Sprintf("State: %s\n", issue.State))
	if len(issue.Labels) > 0 {
		sb.WriteString(fmt.Sprintf("Existing labels: %s\n", strings.Join(issue.Labels, ", ")))
	}
	sb.WriteString("\nDescription:\n")
	sb.WriteString(issue.Description)
	sb.WriteString("\n\n")
	sb.WriteString("Respond with ONLY the tags, one per line.\n")
	sb.WriteString("Use short lowercase phrases (1-3 words).\n")
	sb.WriteString("Do NOT number the tags or add bullet markers.\n")
	sb.WriteString("Do NOT add any other text before or after the tags.\n")

	return sb.String()
}

// parseTagResponse splits the model response into tags: one per line,
// whitespace and leading list markers trimmed, blank lines discarded.
// Repeated tags are dropped case-insensitively, first casing wins, so
// the stored tag set is a set even when the model repeats itself.
// An empty result means the response was unparsable.
func parseTagResponse(text string) ([]string, error) {
	var extracted []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		tag := strings.TrimSpace(line)
		tag = strings.TrimLeft(tag, "-•*")
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		lower := strings.ToLower(tag)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		extracted = append(extracted, tag)
	}
	if len(extracted) == 0 {
		return nil, fmt.Errorf("no tags found in response (%d bytes)", len(text))
	}
	return extracted, nil
}
