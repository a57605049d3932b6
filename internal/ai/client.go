package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/fallback"
	"spendwise/internal/log"
	"spendwise/internal/utils"
)

// DefaultModels is the fallback order used when none is configured.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash"}

const (
	searchUnavailable = "Could not process query"
	searchFailed      = "Error processing query"
)

var ErrEmptyInput = errors.New("ai: empty input")

type Config struct {
	Models   []string
	Timeout  time.Duration
	Clock    utils.Clock
	Location *time.Location
	Logger   *log.Logger
}

// Client is an explicitly constructed handle on a Generator. Each call tries
// the configured models in order and sticks to the first one that answers.
type Client struct {
	gen     Generator
	models  *fallback.Chain[string]
	timeout time.Duration
	clock   utils.Clock
	loc     *time.Location
	logger  *log.Logger
}

func NewClient(gen Generator, cfg Config) *Client {
	names := cfg.Models
	if len(names) == 0 {
		names = DefaultModels
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentAI)

	candidates := make([]fallback.Candidate[string], 0, len(names))
	for _, n := range names {
		n = strings.TrimPrefix(strings.TrimSpace(n), "models/")
		if n != "" {
			candidates = append(candidates, fallback.Candidate[string]{Name: n, Value: n})
		}
	}

	c := &Client{
		gen:     gen,
		timeout: cfg.Timeout,
		clock:   cfg.Clock,
		loc:     cfg.Location,
		logger:  logger,
	}
	if c.clock == nil {
		c.clock = utils.SystemClock{}
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	c.models = fallback.New(candidates, fallback.WithFailureHook[string](func(name string, err error) {
		logger.Warn("Model call failed, trying next", log.FieldModel, name, log.FieldError, err.Error())
	}))
	return c
}

// Model returns the model currently tried first.
func (c *Client) Model() string {
	return c.models.Preferred()
}

func (c *Client) generate(ctx context.Context, prompt string, media *Media) (string, error) {
	return generateParsed(ctx, c, prompt, media, func(text string) (string, error) { return text, nil })
}

// generateParsed runs parse on each model's reply inside the fallback chain,
// so a reply that does not parse moves on to the next model.
func generateParsed[T any](ctx context.Context, c *Client, prompt string, media *Media, parse func(string) (T, error)) (T, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return fallback.Do(ctx, c.models, func(ctx context.Context, model string) (T, error) {
		text, err := c.gen.Generate(ctx, model, prompt, media)
		if err != nil {
			var zero T
			return zero, err
		}
		return parse(text)
	})
}

func (c *Client) today() core.Date {
	return core.DateIn(c.clock.Now(), c.loc)
}

// AnalyzeReceipt extracts the purchase date and line items from a receipt
// image. Items without a positive amount are dropped and implausible dates
// are replaced by today.
func (c *Client) AnalyzeReceipt(ctx context.Context, image Media) (Receipt, error) {
	if len(image.Data) == 0 {
		return Receipt{}, ErrEmptyInput
	}
	today := c.today()
	receipt, err := generateParsed(ctx, c, receiptPrompt(), &image, func(text string) (Receipt, error) {
		return parseReceipt(text, today)
	})
	if err != nil {
		return Receipt{}, err
	}
	c.logger.InfoContext(ctx, "Receipt analyzed", log.FieldItems, len(receipt.Items), log.FieldModel, c.Model())
	return receipt, nil
}

// ParseAudio transcribes a voice note and extracts its line items.
func (c *Client) ParseAudio(ctx context.Context, audio Media) (ParsedExpense, error) {
	if len(audio.Data) == 0 {
		return ParsedExpense{}, ErrEmptyInput
	}
	return generateParsed(ctx, c, audioPrompt(), &audio, parseExpense)
}

// ParseText extracts line items from free text such as "lunch 12.50".
func (c *Client) ParseText(ctx context.Context, input string) (ParsedExpense, error) {
	if strings.TrimSpace(input) == "" {
		return ParsedExpense{}, ErrEmptyInput
	}
	return generateParsed(ctx, c, textPrompt(input), nil, parseExpense)
}

// Insights never fails: any model or parse error yields no insights.
func (c *Client) Insights(ctx context.Context, txs []core.Transaction) []Insight {
	if len(txs) == 0 {
		return []Insight{}
	}
	text, err := c.generate(ctx, insightsPrompt(txs), nil)
	if err != nil {
		c.logger.WarnContext(ctx, "Insights unavailable", log.FieldError, err.Error())
		return []Insight{}
	}
	return parseInsights(text)
}

// Search answers a natural-language question about txs. Failures are
// reported in the answer text rather than as an error.
func (c *Client) Search(ctx context.Context, query string, txs []core.Transaction) SearchResult {
	text, err := c.generate(ctx, searchPrompt(query, txs), nil)
	if err != nil {
		c.logger.WarnContext(ctx, "Search failed", log.FieldError, err.Error())
		return SearchResult{Answer: searchFailed, Matches: []string{}}
	}
	res, err := parseSearch(text, txs)
	if err != nil {
		return SearchResult{Answer: searchUnavailable, Matches: []string{}}
	}
	return res
}
