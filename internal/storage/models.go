package storage

import "time"

// Project는 projects 테이블 레코드를 나타냅니다.
type Project struct {
	ID        int64     `gorm:"column:id;type:bigserial;primaryKey" json:"-"`
	ProjectID string    `gorm:"column:project_id;type:varchar(64);not null;uniqueIndex:idx_projects_project_id" json:"projectId"`
	Name      string    `gorm:"column:name;type:text;not null" json:"name"`
	Source    string    `gorm:"column:source;type:text" json:"source,omitempty"`
	OrgName   string    `gorm:"column:org_name;type:text" json:"orgName,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updatedAt"`
}

// TableName은 gorm Tabler 인터페이스를 구현합니다.
func (Project) TableName() string {
	return "projects"
}

// ProjectMaterial은 project_materials 테이블 레코드를 나타냅니다.
// 평가 대상 자료(material)와 평가 지침(guideline)을 모두 저장합니다.
type ProjectMaterial struct {
	ID         int64     `gorm:"column:id;type:bigserial;primaryKey" json:"-"`
	MaterialID string    `gorm:"column:material_id;type:varchar(64);not null;uniqueIndex:idx_materials_material_id" json:"materialId"`
	ProjectID  string    `gorm:"column:project_id;type:varchar(64);not null;index:idx_materials_project" json:"projectId"`
	Kind       string    `gorm:"column:kind;type:varchar(16);not null" json:"kind"`
	SourceKind string    `gorm:"column:source_kind;type:varchar(16);not null;default:'text'" json:"sourceKind"`
	FileName   string    `gorm:"column:file_name;type:text" json:"fileName,omitempty"`
	MimeType   string    `gorm:"column:mime_type;type:varchar(128)" json:"mimeType,omitempty"`
	Content    string    `gorm:"column:content;type:text" json:"content"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
}

// TableName은 gorm Tabler 인터페이스를 구현합니다.
func (ProjectMaterial) TableName() string {
	return "project_materials"
}

// ReviewResult는 review_results 테이블 레코드를 나타냅니다.
// (project_id, agent_type) 복합 키가 유일해야 하며 upsert 충돌 대상입니다.
type ReviewResult struct {
	ID        int64     `gorm:"column:id;type:bigserial;primaryKey" json:"-"`
	ProjectID string    `gorm:"column:project_id;type:varchar(64);not null;uniqueIndex:idx_review_results_project_agent,priority:1" json:"projectId"`
	AgentType string    `gorm:"column:agent_type;type:varchar(32);not null;uniqueIndex:idx_review_results_project_agent,priority:2" json:"agentType"`
	Status    string    `gorm:"column:status;type:varchar(32);not null;default:'IDLE'" json:"status"`
	Content   string    `gorm:"column:content;type:text" json:"content,omitempty"`
	Error     string    `gorm:"column:error;type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updatedAt"`
}

// TableName은 gorm Tabler 인터페이스를 구현합니다.
func (ReviewResult) TableName() string {
	return "review_results"
}

// ChatMessage는 chat_messages 테이블 레코드를 나타냅니다.
type ChatMessage struct {
	ID        int64     `gorm:"column:id;type:bigserial;primaryKey" json:"-"`
	MessageID string    `gorm:"column:message_id;type:varchar(64);not null;uniqueIndex:idx_chat_messages_message_id" json:"messageId"`
	ProjectID string    `gorm:"column:project_id;type:varchar(64);not null;index:idx_chat_messages_project" json:"projectId"`
	Role      string    `gorm:"column:role;type:varchar(16);not null" json:"role"`
	Text      string    `gorm:"column:text;type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
}

// TableName은 gorm Tabler 인터페이스를 구현합니다.
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ReviewTemplate은 review_templates 테이블 레코드를 나타냅니다.
// 스트리밍 평가 요청에서 템플릿을 지정하면 평가자별 중점 영역을 오버라이드합니다.
type ReviewTemplate struct {
	ID          int64     `gorm:"column:id;type:bigserial;primaryKey" json:"-"`
	TemplateID  string    `gorm:"column:template_id;type:varchar(64);not null;uniqueIndex:idx_review_templates_template_id" json:"templateId"`
	Name        string    `gorm:"column:name;type:text;not null" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	Category    string    `gorm:"column:category;type:varchar(32);not null;default:'custom'" json:"category"`
	FocusA      string    `gorm:"column:focus_a;type:text" json:"focusA,omitempty"`
	FocusB      string    `gorm:"column:focus_b;type:text" json:"focusB,omitempty"`
	FocusC      string    `gorm:"column:focus_c;type:text" json:"focusC,omitempty"`
	IsSystem    bool      `gorm:"column:is_system;not null;default:false" json:"isSystem"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updatedAt"`
}

// TableName은 gorm Tabler 인터페이스를 구현합니다.
func (ReviewTemplate) TableName() string {
	return "review_templates"
}
