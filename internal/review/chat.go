package review

import (
	"context"

	"github.com/smartgrant-oss/app/internal/gateway"
	"github.com/smartgrant-oss/app/internal/storage"
	"go.uber.org/zap"
)

// 대화 맥락으로 전달하는 최근 히스토리 항목 수
const chatHistoryWindow = 4

// ChatStore는 대화 기록 영속화 인터페이스입니다. *storage.Repository가 만족합니다.
type ChatStore interface {
	AppendChatMessage(ctx context.Context, projectID, role, text string) error
	ListChatMessages(ctx context.Context, projectID string) ([]storage.ChatMessage, error)
}

// ChatTurn은 단일 대화 턴입니다.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatRequest는 평가 어시스턴트 호출 입력입니다.
// History가 비어 있고 ProjectID가 있으면 저장소에서 최근 기록을 불러옵니다.
type ChatRequest struct {
	ProjectID   string     `json:"projectId"`
	Message     string     `json:"message"`
	FinalReport string     `json:"finalReport,omitempty"`
	History     []ChatTurn `json:"history,omitempty"`
}

// Chat은 종합 평가 보고서를 근거로 후속 질문에 답합니다.
// 대화 양쪽(사용자/모델)의 영속화는 베스트 에포트이며 실패해도 응답은 반환됩니다.
func (o *Orchestrator) Chat(ctx context.Context, chatStore ChatStore, req ChatRequest) (string, error) {
	history := req.History
	if len(history) == 0 && req.ProjectID != "" && chatStore != nil {
		stored, err := chatStore.ListChatMessages(ctx, req.ProjectID)
		if err != nil {
			o.logger.Warn("Chat history load failed (ignored)",
				zap.String("project_id", req.ProjectID),
				zap.Error(err),
			)
		}
		for _, m := range stored {
			history = append(history, ChatTurn{Role: m.Role, Text: m.Text})
		}
	}
	if len(history) > chatHistoryWindow {
		history = history[len(history)-chatHistoryWindow:]
	}

	messages := []gateway.Message{{Role: gateway.RoleSystem, Content: chatSystemPrompt(req.FinalReport)}}
	for _, turn := range history {
		role := gateway.RoleUser
		if turn.Role == storage.ChatRoleModel {
			role = gateway.RoleAssistant
		}
		messages = append(messages, gateway.Message{Role: role, Content: turn.Text})
	}
	messages = append(messages, gateway.Message{Role: gateway.RoleUser, Content: req.Message})

	reply, err := o.completer.Complete(ctx, gateway.Request{
		Model:       o.registry.ChatModel(),
		Messages:    messages,
		Temperature: chatTemperature,
		Profile:     gateway.ProfileChat,
	})
	if err != nil {
		return "", err
	}

	if req.ProjectID != "" && chatStore != nil {
		tryPersist(o.logger, "append chat user turn", func() error {
			return chatStore.AppendChatMessage(ctx, req.ProjectID, storage.ChatRoleUser, req.Message)
		})
		tryPersist(o.logger, "append chat model turn", func() error {
			return chatStore.AppendChatMessage(ctx, req.ProjectID, storage.ChatRoleModel, reply)
		})
	}

	return reply, nil
}
