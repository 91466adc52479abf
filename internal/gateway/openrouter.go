package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/smartgrant-oss/app/internal/common"
	"go.uber.org/zap"
)

// OpenRouterClient는 OpenRouter chat/completions 엔드포인트를 호출하는 live Completer입니다.
// OpenRouter는 OpenAI 호환 와이어 포맷을 사용하므로 openai-go SDK를 그대로 사용합니다.
type OpenRouterClient struct {
	client  openai.Client
	logger  *zap.Logger
	timeout time.Duration
}

// NewOpenRouterClient는 새 OpenRouter 클라이언트를 생성합니다.
func NewOpenRouterClient(logger *zap.Logger, cfg common.OpenRouterConfig) *OpenRouterClient {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")),
		option.WithHeader("HTTP-Referer", cfg.AppURL),
		option.WithHeader("X-Title", cfg.AppName),
		// 재시도는 호출자의 책임: SDK 기본 재시도를 비활성화
		option.WithMaxRetries(0),
	)

	return &OpenRouterClient{
		client:  client,
		logger:  logger,
		timeout: cfg.RequestTimeout,
	}
}

// Complete는 지정된 모델로 완성 호출 1회를 수행합니다.
// 비 2xx 응답과 전송 실패는 모두 UpstreamError로 분류됩니다.
func (c *OpenRouterClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(8192),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.logger.Error("OpenRouter API error",
				zap.String("model", req.Model),
				zap.Int("status", apiErr.StatusCode),
			)
			return "", NewUpstreamError(req.Model, apiErr.StatusCode, apiErr.Error(), err)
		}
		c.logger.Error("OpenRouter transport error",
			zap.String("model", req.Model),
			zap.Error(err),
		)
		return "", NewUpstreamError(req.Model, 0, err.Error(), err)
	}

	if len(completion.Choices) == 0 {
		return "", NewUpstreamError(req.Model, 0, "empty choices", ErrEmptyCompletion)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", NewUpstreamError(req.Model, 0, "empty message content", ErrEmptyCompletion)
	}

	return content, nil
}
