package review

import (
	"context"
	"sync"
	"time"

	"github.com/smartgrant-oss/app/internal/gateway"
	"github.com/smartgrant-oss/app/internal/storage"
	"go.uber.org/zap"
)

// 역할별 샘플링 온도. 모델 간 출력 일관성을 위해 낮게 유지합니다.
const (
	reviewTemperature   = 0.2
	chatTemperature     = 0.5
	metadataTemperature = 0.1
)

// TemplateLoader는 평가 템플릿 조회 협력자입니다. *storage.Repository가 만족합니다.
type TemplateLoader interface {
	GetReviewTemplate(ctx context.Context, templateID string) (*storage.ReviewTemplate, error)
}

// Orchestrator는 평가 사이클 1회를 구동합니다.
// 배치 모드(RunCycle)는 평가자들을 동시에, 스트리밍 모드(RunCycleStream)는 순차로 실행하며
// 프롬프트 구성, 상태 기계, 영속화 로직은 두 모드가 공유합니다.
type Orchestrator struct {
	logger    *zap.Logger
	completer gateway.Completer
	store     ResultStore
	templates TemplateLoader
	registry  *Registry
}

// NewOrchestrator는 새 Orchestrator를 생성합니다.
// templates는 nil일 수 있으며, 그 경우 템플릿 오버라이드는 무시됩니다.
func NewOrchestrator(logger *zap.Logger, completer gateway.Completer, store ResultStore, templates TemplateLoader, registry *Registry) *Orchestrator {
	return &Orchestrator{
		logger:    logger,
		completer: completer,
		store:     store,
		templates: templates,
		registry:  registry,
	}
}

// Registry는 오케스트레이터의 에이전트 레지스트리를 반환합니다.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// RunCycle은 배치 모드로 평가 사이클 1회를 실행합니다.
//
// 평가자들은 독립된 goroutine으로 동시에 실행되며, 전부 종료될 때까지 기다립니다
// (첫 실패/첫 성공에 단락하지 않음). 종합 보고는 모든 평가자가 종료 상태에 도달한
// 뒤에만 시작되고, 실패한 평가자의 기여분은 빈 문자열로 대체됩니다.
// 종합 단계가 실패해도 평가자 결과는 그대로 반환됩니다.
func (o *Orchestrator) RunCycle(ctx context.Context, req CycleRequest) CycleResult {
	reviewers := o.resolveReviewers(ctx, req)

	// 새 사이클 시작: 모든 역할 상태를 IDLE로 리셋 (이전 내용은 폐기)
	tryPersist(o.logger, "reset cycle", func() error {
		return o.store.ResetReviewResults(ctx, req.ProjectID, agentTypeNames(o.registry.AllRoles())...)
	})

	results := make([]AgentResult, len(reviewers))
	var wg sync.WaitGroup
	for i, spec := range reviewers {
		wg.Add(1)
		go func(i int, spec AgentSpec) {
			defer wg.Done()
			// 역할별 결과 슬롯에만 쓰므로 공유 상태 경합이 없음
			results[i] = o.runReviewer(ctx, req, spec)
		}(i, spec)
	}
	wg.Wait()

	o.logger.Info("All reviewers resolved, starting synthesis",
		zap.String("project_id", req.ProjectID),
		zap.Int("reviewers", len(results)),
	)

	synthesis := o.runSynthesizer(ctx, req.ProjectID, reviewInputs(reviewers, results))

	if synthesis.Status == StatusCompleted {
		tryPersist(o.logger, "touch project", func() error {
			return o.store.TouchProject(ctx, req.ProjectID)
		})
	}

	return CycleResult{
		Reviews:   results,
		Synthesis: synthesis,
		Success:   synthesis.Status == StatusCompleted,
	}
}

// runReviewer는 평가자 1명을 실행하고 결과를 포착합니다.
// 이 경계를 넘어 에러가 전파되는 일은 없습니다: 실패는 AgentResult의 Error 상태로만 기록됩니다.
func (o *Orchestrator) runReviewer(ctx context.Context, req CycleRequest, spec AgentSpec) AgentResult {
	persistStatus(ctx, o.logger, o.store, req.ProjectID, spec.Role, StatusThinking, "", "")

	o.logger.Info("Reviewer started",
		zap.String("project_id", req.ProjectID),
		zap.String("agent", string(spec.Role)),
		zap.String("model", spec.Model),
	)

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
		return AgentResult{
			Role:   spec.Role,
			Name:   spec.Name,
			Status: StatusError,
			Error:  err.Error(),
		}
	}

	persistStatus(ctx, o.logger, o.store, req.ProjectID, spec.Role, StatusCompleted, content, "")
	return AgentResult{
		Role:    spec.Role,
		Name:    spec.Name,
		Status:  StatusCompleted,
		Content: content,
		Success: true,
	}
}

// runSynthesizer는 종합 보고 단계를 실행합니다.
// 입력은 (역할, 내용) 쌍의 목록이며, 실패한 평가자의 내용은 빈 문자열입니다.
func (o *Orchestrator) runSynthesizer(ctx context.Context, projectID string, reviews []ReviewInput) AgentResult {
	spec := o.registry.Synthesizer()

	persistStatus(ctx, o.logger, o.store, projectID, spec.Role, StatusThinking, "", "")

	content, err := o.completer.Complete(ctx, gateway.Request{
		Model: spec.Model,
		Messages: []gateway.Message{
			{Role: gateway.RoleUser, Content: synthesizerPrompt(reviews)},
		},
		Temperature: reviewTemperature,
		Profile:     gateway.ProfileSynthesizer,
	})
	if err != nil {
		o.logger.Error("Synthesizer failed",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		persistStatus(ctx, o.logger, o.store, projectID, spec.Role, StatusError, "", err.Error())
		return AgentResult{
			Role:   spec.Role,
			Name:   spec.Name,
			Status: StatusError,
			Error:  err.Error(),
		}
	}

	o.logger.Info("Synthesis completed", zap.String("project_id", projectID))
	persistStatus(ctx, o.logger, o.store, projectID, spec.Role, StatusCompleted, content, "")
	return AgentResult{
		Role:    spec.Role,
		Name:    spec.Name,
		Status:  StatusCompleted,
		Content: content,
		Success: true,
	}
}

// resolveReviewers는 평가자 스펙을 확정합니다.
// TemplateID가 지정되면 템플릿의 중점 영역으로 오버라이드하며,
// 템플릿 조회 실패는 기본 스펙 사용으로 강등됩니다 (에러 아님).
func (o *Orchestrator) resolveReviewers(ctx context.Context, req CycleRequest) []AgentSpec {
	reviewers := o.registry.Reviewers()
	if req.TemplateID == "" || o.templates == nil {
		return reviewers
	}

	template, err := o.templates.GetReviewTemplate(ctx, req.TemplateID)
	if err != nil {
		o.logger.Warn("Review template not found, using defaults",
			zap.String("template_id", req.TemplateID),
			zap.Error(err),
		)
		return reviewers
	}

	focuses := map[AgentRole]string{
		RoleReviewerA: template.FocusA,
		RoleReviewerB: template.FocusB,
		RoleReviewerC: template.FocusC,
	}
	for i := range reviewers {
		if focus := focuses[reviewers[i].Role]; focus != "" {
			reviewers[i].Focus = focus
		}
	}
	return reviewers
}

// reviewInputs는 평가자 결과를 종합 단계 입력으로 변환합니다.
// Error 상태의 평가자는 빈 내용으로 포함됩니다 (무기한 대기 대신).
func reviewInputs(reviewers []AgentSpec, results []AgentResult) []ReviewInput {
	inputs := make([]ReviewInput, len(reviewers))
	for i, spec := range reviewers {
		inputs[i] = ReviewInput{Spec: spec, Content: results[i].Content}
	}
	return inputs
}

func toGatewayMessages(messages []promptMessage) []gateway.Message {
	out := make([]gateway.Message, len(messages))
	for i, msg := range messages {
		out[i] = gateway.Message{Role: msg.role, Content: msg.content}
	}
	return out
}

func agentTypeNames(roles []AgentRole) []string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return names
}
