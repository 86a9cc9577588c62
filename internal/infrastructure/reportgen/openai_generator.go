package reportgen

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

var (
	ErrAPIKeyMissing = errors.New("ai api key is not configured")
	ErrEmptyReport   = errors.New("ai response contained no report")
)

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIGenerator sends one chat completion per report. Retries are disabled;
// the caller decides whether to try again.
type OpenAIGenerator struct {
	client  openai.Client
	model   string
	timeout time.Duration
	ready   bool
	now     func() time.Time
}

var _ ports.ReportGenerator = (*OpenAIGenerator)(nil)

func NewOpenAIGenerator(opts Options) *OpenAIGenerator {
	requestOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(baseURL))
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIGenerator{
		client:  openai.NewClient(requestOpts...),
		model:   model,
		timeout: opts.Timeout,
		ready:   strings.TrimSpace(opts.APIKey) != "",
		now:     time.Now,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, c claim.Claim) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}
	if !g.ready {
		return "", ErrAPIKeyMissing
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "reportgen.openai"),
		slog.String("claim_id", c.ID),
		slog.String("model", g.model),
	)

	prompt, err := BuildPrompt(c, g.now())
	if err != nil {
		return "", err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
	})
	if err != nil {
		logging.Warn(logCtx, "report completion failed", slog.Any("err", errs.Loggable(err)))
		return "", errs.Wrap(err, "create chat completion")
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReport
	}

	logging.Info(logCtx, "report generated", slog.Duration("elapsed", time.Since(started)))
	return resp.Choices[0].Message.Content, nil
}
