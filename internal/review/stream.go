package review

import (
	"context"
	"time"

	"github.com/smartgrant-oss/app/internal/gateway"
	"go.uber.org/zap"
)

// EventType은 스트리밍 평가의 진행 이벤트 종류입니다.
type EventType string

const (
	EventStart               EventType = "start"
	EventAgentStart          EventType = "agent_start"
	EventAgentComplete       EventType = "agent_complete"
	EventAgentError          EventType = "agent_error"
	EventSynthesizerStart    EventType = "synthesizer_start"
	EventSynthesizerComplete EventType = "synthesizer_complete"
	EventSynthesizerError    EventType = "synthesizer_error"
	EventComplete            EventType = "complete"
	EventError               EventType = "error"
)

// Event는 상태 전이마다 즉시 방출되는 타입드 진행 이벤트입니다.
type Event struct {
	Type     EventType `json:"type"`
	Agent    AgentRole `json:"agent,omitempty"`
	Name     string    `json:"name,omitempty"`
	Content  string    `json:"content,omitempty"`
	Error    string    `json:"error,omitempty"`
	Message  string    `json:"message,omitempty"`
	Template string    `json:"template,omitempty"`
}

// EmitFunc는 이벤트 소비자 콜백입니다. 장수 연결(SSE 등)의 쓰기 측이 전달합니다.
type EmitFunc func(Event)

// RunCycleStream은 스트리밍 모드로 평가 사이클 1회를 실행합니다.
//
// 배치 모드와 달리 평가자들을 순차로 실행합니다: 사람이 지켜볼 수 있는 의미 있는
// 진행 서사를 위해 지연을 감수하는 의도적 트레이드오프입니다.
// 모든 상태 전이 직후 이벤트가 방출되며, 평가자 하나의 실패는 루프를 멈추지 않습니다
// (해당 역할의 기여분은 빈 문자열로 종합에 전달).
// 모든 분기에서 마지막에 터미널 이벤트(complete 또는 error)가 방출됩니다 —
// 소비자 스트림이 행(hang)하는 입력은 존재하지 않습니다.
func (o *Orchestrator) RunCycleStream(ctx context.Context, req CycleRequest, emit EmitFunc) {
	if req.ProjectID == "" {
		// 루프 시작 전 하드 실패: 단일 error 이벤트 후 즉시 종료
		emit(Event{Type: EventError, Error: "missing projectId"})
		return
	}

	reviewers := o.resolveReviewers(ctx, req)

	tryPersist(o.logger, "reset cycle", func() error {
		return o.store.ResetReviewResults(ctx, req.ProjectID, agentTypeNames(o.registry.AllRoles())...)
	})

	templateName := ""
	if req.TemplateID != "" && o.templates != nil {
		if template, err := o.templates.GetReviewTemplate(ctx, req.TemplateID); err == nil {
			templateName = template.Name
		}
	}

	emit(Event{Type: EventStart, Message: "评审任务已启动", Template: templateName})

	results := make([]AgentResult, len(reviewers))
	for i, spec := range reviewers {
		emit(Event{
			Type:    EventAgentStart,
			Agent:   spec.Role,
			Name:    spec.Name,
			Message: spec.Name + " 开始评审...",
		})

		persistStatus(ctx, o.logger, o.store, req.ProjectID, spec.Role, StatusThinking, "", "")

		content, err := o.completer.Complete(ctx, gateway.Request{
			Model:       spec.Model,
			Messages:    toGatewayMessages(reviewerMessages(spec, req, time.Now())),
			Temperature: reviewTemperature,
			Profile:     gateway.ProfileReviewer,
		})
		if err != nil {
			o.logger.Error("Reviewer failed",
				zap.String("project_id", req.ProjectID),
				zap.String("agent", string(spec.Role)),
				zap.Error(err),
			)
			persistStatus(ctx, o.logger, o.store, req.ProjectID, spec.Role, StatusError, "", err.Error())
			emit(Event{Type: EventAgentError, Agent: spec.Role, Error: err.Error()})
			results[i] = AgentResult{Role: spec.Role, Name: spec.Name, Status: StatusError, Error: err.Error()}
			continue
		}

		persistStatus(ctx, o.logger, o.store, req.ProjectID, spec.Role, StatusCompleted, content, "")
		emit(Event{
			Type:    EventAgentComplete,
			Agent:   spec.Role,
			Name:    spec.Name,
			Content: content,
			Message: spec.Name + " 评审完成",
		})
		results[i] = AgentResult{Role: spec.Role, Name: spec.Name, Status: StatusCompleted, Content: content, Success: true}
	}

	emit(Event{Type: EventSynthesizerStart, Message: "首席评审官正在汇总意见..."})

	synthesis := o.runSynthesizer(ctx, req.ProjectID, reviewInputs(reviewers, results))
	if synthesis.Status == StatusError {
		emit(Event{Type: EventSynthesizerError, Error: synthesis.Error})
	} else {
		tryPersist(o.logger, "touch project", func() error {
			return o.store.TouchProject(ctx, req.ProjectID)
		})
		emit(Event{Type: EventSynthesizerComplete, Content: synthesis.Content, Message: "综合评审报告已生成"})
	}

	// 모든 평가자가 실패했더라도 스트림은 항상 깨끗하게 종료됩니다
	emit(Event{Type: EventComplete, Message: "评审流程已完成"})
}
