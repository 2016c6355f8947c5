package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"content-analysis-platform/internal/config"
	"content-analysis-platform/internal/logger"
	"content-analysis-platform/models"
)

// Client wraps the Gemini API for the two operations the pipeline needs:
// content analysis and text embeddings. Both are network calls; the
// breaker and rate limiter fail fast instead of retrying, so repeated
// upstream failures surface as errors rather than hanging requests.
type Client struct {
	client         *genai.Client
	analysisModel  string
	embeddingModel string
	breaker        *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	tokenCounter   *TokenCounter
}

type TokenCounter struct {
	mu              sync.Mutex
	limits          RateLimits
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(cfg.GeminiTier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), max(limits.RPM/10, 1))

	return &Client{
		client:         client,
		analysisModel:  cfg.AnalysisModel,
		embeddingModel: cfg.EmbeddingsModel,
		breaker:        breaker,
		rateLimiter:    rateLimiter,
		tokenCounter:   &TokenCounter{limits: limits},
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// Analyze asks the model for a structured analysis of the text. An API
// failure is returned as an error; a response that is not valid JSON is
// recovered locally with the fixed fallback analysis and never fails.
func (c *Client) Analyze(ctx context.Context, text string) (models.AnalysisResult, error) {
	tracer := otel.Tracer("ai-client")
	ctx, span := tracer.Start(ctx, "gemini.analyze")
	defer span.End()

	span.SetAttributes(attribute.String("gemini.model", c.analysisModel))

	estimatedTokens := len(text) / 4
	if !c.tokenCounter.CanConsume(estimatedTokens, 1) {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return models.AnalysisResult{}, errors.New("rate limit exceeded: wait before retry")
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return models.AnalysisResult{}, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		model := c.client.GenerativeModel(c.analysisModel)
		model.SetTemperature(0.2)
		model.SetMaxOutputTokens(2048)

		resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(analysisPrompt, text)))
		if err != nil {
			return nil, err
		}

		c.tokenCounter.RecordUsage(extractTokenUsage(resp), 1)
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return models.AnalysisResult{}, errors.New("ai service unavailable: circuit breaker open")
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return models.AnalysisResult{}, err
	}

	raw := candidateText(result.(*genai.GenerateContentResponse))
	analysis, parsed := DecodeAnalysis(raw)
	span.SetAttributes(attribute.Bool("gemini.analysis_parsed", parsed))
	if !parsed {
		logger.Warn("Analysis response was not valid JSON, using fallback", "model", c.analysisModel)
	}
	return analysis, nil
}

// Embed returns the embedding vector for the text. The vector dimension
// is fixed by the embedding model, not asserted here.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("ai-client")
	ctx, span := tracer.Start(ctx, "gemini.embed")
	defer span.End()

	span.SetAttributes(attribute.String("gemini.model", c.embeddingModel))

	if err := c.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		model := c.client.EmbeddingModel(c.embeddingModel)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return nil, errors.New("ai service unavailable: circuit breaker open")
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, err
	}

	return result.([]float32), nil
}

func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := time.Now()

	// Reset counters if time windows expired
	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}

	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}

	if tc.minuteRequests+requests > tc.limits.RPM {
		return false
	}
	if tc.minuteTokens+tokens > tc.limits.TPM {
		return false
	}
	if tc.dailyRequests+requests > tc.limits.RPD {
		return false
	}

	return true
}

func (tc *TokenCounter) RecordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.minuteTokens += tokens
	tc.minuteRequests += requests
	tc.dailyTokens += tokens
	tc.dailyRequests += requests
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	out := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	return out
}

// extractTokenUsage reads actual usage from response metadata, falling
// back to a 4-characters-per-token estimate.
func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}

	estimated := len(candidateText(resp)) / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

// Close the client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
