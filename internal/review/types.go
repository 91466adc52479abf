// Package review는 다중 에이전트 평가 사이클의 상태 기계와 오케스트레이션을 구현합니다.
package review

import (
	"github.com/smartgrant-oss/app/internal/storage"
)

// AgentRole은 논리적 에이전트 역할입니다. 고정 집합이며 런타임에 변하지 않습니다.
type AgentRole string

const (
	RoleReviewerA    AgentRole = storage.AgentTypeReviewerA
	RoleReviewerB    AgentRole = storage.AgentTypeReviewerB
	RoleReviewerC    AgentRole = storage.AgentTypeReviewerC
	RoleSynthesizer  AgentRole = storage.AgentTypeSynthesizer
	RoleExpertHunter AgentRole = storage.AgentTypeExpertHunter
)

// Status는 에이전트 실행 상태입니다.
// 생명주기: Idle → Thinking → (Completed | Error). 새 사이클이 시작되면 Idle로 리셋됩니다.
type Status string

const (
	StatusIdle      Status = storage.AgentStatusIdle
	StatusThinking  Status = storage.AgentStatusThinking
	StatusCompleted Status = storage.AgentStatusCompleted
	StatusError     Status = storage.AgentStatusError
)

// AgentResult는 역할 하나의 실행 결과입니다.
// Content는 Completed일 때만, Error는 실패했을 때만 채워집니다.
type AgentResult struct {
	Role    AgentRole `json:"role"`
	Name    string    `json:"name,omitempty"`
	Status  Status    `json:"status"`
	Content string    `json:"content"`
	Error   string    `json:"error,omitempty"`
	Success bool      `json:"success"`
}

// Document는 평가 입력 문서입니다. 바이너리 파싱은 업스트림에서 완료되어 평문만 전달됩니다.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"fileName,omitempty"`
	Content    string `json:"content"`
	SourceKind string `json:"type,omitempty"` // "text" | "file"
}

// CycleRequest는 평가 사이클 1회의 입력입니다.
// Materials/Guidelines는 사이클 동안 불변으로 취급됩니다.
type CycleRequest struct {
	ProjectID  string
	Materials  []Document
	Guidelines []Document
	// TemplateID가 비어있지 않으면 평가자별 중점 영역을 템플릿으로 오버라이드합니다.
	TemplateID string
}

// CycleResult는 평가 사이클 1회의 전체 결과입니다.
// 종합 보고 단계가 실패해도 평가자 결과는 항상 포함됩니다 (부분 결과 표시 가능).
type CycleResult struct {
	Reviews   []AgentResult `json:"reviews"`
	Synthesis AgentResult   `json:"finalReport"`
	Success   bool          `json:"success"`
}

// ReviewerContent는 role별 평가 내용을 조회합니다. 실패한 평가자는 빈 문자열입니다.
func (r CycleResult) ReviewerContent(role AgentRole) string {
	for _, review := range r.Reviews {
		if review.Role == role {
			return review.Content
		}
	}
	return ""
}
