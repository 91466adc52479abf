package review

import (
	"fmt"

	"github.com/smartgrant-oss/app/internal/common"
)

// AgentSpec은 역할 하나의 정적 구성입니다: 표시 이름, 중점 영역, 사용 모델.
type AgentSpec struct {
	Role  AgentRole
	Name  string
	Focus string
	Model string
}

// Registry는 AgentRole → AgentSpec 정적 매핑입니다. 순수 데이터이며 런타임 변형이 없습니다.
// 평가자 집합은 슬라이스로 보관하므로 구성만 바꾸면 N명으로 확장할 수 있습니다.
type Registry struct {
	reviewers     []AgentSpec
	synthesizer   AgentSpec
	expertHunter  AgentSpec
	chatModel     string
	metadataModel string
}

// NewRegistry는 모델 설정으로 기본 에이전트 레지스트리를 구성합니다.
func NewRegistry(models common.ModelConfig) *Registry {
	return &Registry{
		reviewers: []AgentSpec{
			{
				Role:  RoleReviewerA,
				Name:  "评审专家A (Claude)",
				Focus: "风险控制、合规性与逻辑严密性",
				Model: models.ReviewerA,
			},
			{
				Role:  RoleReviewerB,
				Name:  "评审专家B (Gemini)",
				Focus: "技术创新、前沿性与研发实力",
				Model: models.ReviewerB,
			},
			{
				Role:  RoleReviewerC,
				Name:  "评审专家C (GPT-4)",
				Focus: "商业落地、团队资质与资源保障",
				Model: models.ReviewerC,
			},
		},
		synthesizer: AgentSpec{
			Role:  RoleSynthesizer,
			Name:  "首席评审官",
			Focus: "汇总三份独立评审意见，进行交叉验证，生成最终决议",
			Model: models.Synthesizer,
		},
		expertHunter: AgentSpec{
			Role:  RoleExpertHunter,
			Name:  "智能专家遴选",
			Focus: "基于项目技术领域，全网搜索并推荐匹配的权威专家",
			Model: models.ExpertSearch,
		},
		chatModel:     models.Chat,
		metadataModel: models.Metadata,
	}
}

// Reviewers는 평가자 스펙의 복사본을 반환합니다.
func (r *Registry) Reviewers() []AgentSpec {
	out := make([]AgentSpec, len(r.reviewers))
	copy(out, r.reviewers)
	return out
}

// Synthesizer는 종합 보고 에이전트 스펙을 반환합니다.
func (r *Registry) Synthesizer() AgentSpec {
	return r.synthesizer
}

// ExpertHunter는 전문가 추천 에이전트 스펙을 반환합니다.
func (r *Registry) ExpertHunter() AgentSpec {
	return r.expertHunter
}

// ChatModel은 챗 어시스턴트용 모델 식별자를 반환합니다.
func (r *Registry) ChatModel() string {
	return r.chatModel
}

// MetadataModel은 메타데이터 추출용 경량 모델 식별자를 반환합니다.
func (r *Registry) MetadataModel() string {
	return r.metadataModel
}

// Spec은 역할로 스펙을 조회합니다. 알 수 없는 역할은 프로그래머 오류이므로 panic합니다.
func (r *Registry) Spec(role AgentRole) AgentSpec {
	for _, spec := range r.reviewers {
		if spec.Role == role {
			return spec
		}
	}
	switch role {
	case RoleSynthesizer:
		return r.synthesizer
	case RoleExpertHunter:
		return r.expertHunter
	}
	panic(fmt.Sprintf("review: unknown agent role %q", role))
}

// AllRoles는 레지스트리에 등록된 모든 역할을 반환합니다 (사이클 리셋 대상).
func (r *Registry) AllRoles() []AgentRole {
	roles := make([]AgentRole, 0, len(r.reviewers)+2)
	for _, spec := range r.reviewers {
		roles = append(roles, spec.Role)
	}
	roles = append(roles, r.synthesizer.Role, r.expertHunter.Role)
	return roles
}
