// Package gateway는 원격 완성 서비스(OpenRouter)에 대한 단일 호출 인터페이스를 제공합니다.
// 모든 LLM 상호작용은 이 패키지의 Completer를 통해서만 이루어집니다.
package gateway

import (
	"context"

	"github.com/smartgrant-oss/app/internal/common"
	"go.uber.org/zap"
)

// 메시지 역할 상수입니다. OpenAI 호환 chat 포맷을 따릅니다.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Profile은 mock 모드에서 역할에 맞는 응답 형태를 선택하기 위한 힌트입니다.
// live 전송에서는 무시됩니다.
const (
	ProfileReviewer     = "reviewer"
	ProfileSynthesizer  = "synthesizer"
	ProfileExpertSearch = "expert_search"
	ProfileKeywords     = "keywords"
	ProfileMetadata     = "metadata"
	ProfileChat         = "chat"
)

// Message는 대화의 단일 메시지입니다.
type Message struct {
	Role    string
	Content string
}

// Request는 완성 호출 1회의 입력입니다.
type Request struct {
	// Model은 OpenRouter 모델 식별자입니다 (예: "anthropic/claude-sonnet-4")
	Model string
	// Messages는 순서 있는 메시지 목록입니다
	Messages []Message
	// Temperature는 샘플링 온도입니다
	Temperature float64
	// Profile은 mock 응답 형태 선택용 힌트입니다 (live에서는 무시)
	Profile string
}

// Completer는 완성 서비스 호출 계약입니다.
// 재시도는 내부에서 수행하지 않으며, 필요하다면 호출자의 책임입니다.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewCompleter는 설정의 전송 모드에 따라 Completer를 생성합니다.
// live 모드인데 API 키가 없으면 ErrNoAPIKey를 반환합니다 (암묵적 mock 폴백 없음).
func NewCompleter(logger *zap.Logger, cfg *common.Config) (Completer, error) {
	mode := cfg.ResolveTransportMode()
	if mode == common.TransportMock {
		if cfg.OpenRouter.TransportMode == "" {
			logger.Warn("OPENROUTER_API_KEY not set, falling back to mock transport",
				zap.String("hint", "set SMARTGRANT_TRANSPORT_MODE=mock to silence this warning"),
			)
		}
		return NewMockCompleter(logger, cfg.OpenRouter.MockDelay), nil
	}

	if cfg.OpenRouter.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewOpenRouterClient(logger, cfg.OpenRouter), nil
}
