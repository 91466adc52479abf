package storage

const (
	// Agent 실행 상태 (review_results.status)
	AgentStatusIdle      = "IDLE"
	AgentStatusThinking  = "THINKING"
	AgentStatusCompleted = "COMPLETED"
	AgentStatusError     = "ERROR"

	// Agent 유형 (review_results.agent_type)
	AgentTypeReviewerA    = "REVIEWER_A"
	AgentTypeReviewerB    = "REVIEWER_B"
	AgentTypeReviewerC    = "REVIEWER_C"
	AgentTypeSynthesizer  = "SYNTHESIZER"
	AgentTypeExpertHunter = "EXPERT_HUNTER"

	// 자료 구분 (project_materials.kind)
	MaterialKindMaterial  = "material"
	MaterialKindGuideline = "guideline"

	// 자료 입력 형태 (project_materials.source_kind)
	SourceKindText = "text"
	SourceKindFile = "file"

	// 채팅 발화자 (chat_messages.role)
	ChatRoleUser  = "user"
	ChatRoleModel = "model"

	// 평가 템플릿 분류 (review_templates.category)
	TemplateCategoryNational   = "national"
	TemplateCategoryProvincial = "provincial"
	TemplateCategoryEnterprise = "enterprise"
	TemplateCategoryCustom     = "custom"
)
