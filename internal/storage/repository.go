package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository는 SmartGrant 도메인 객체를 위한 영속성 헬퍼를 제공합니다.
type Repository struct {
	db *gorm.DB
}

// NewRepository는 전달된 gorm DB를 이용해 Repository를 생성합니다.
func NewRepository(db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("storage: repository requires a non-nil db handle")
	}
	return &Repository{db: db}, nil
}

// DB는 내부 gorm DB 참조를 반환합니다.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// CreateProject는 새로운 프로젝트 레코드를 저장합니다.
func (r *Repository) CreateProject(ctx context.Context, project *Project) error {
	if project == nil {
		return fmt.Errorf("storage: nil project payload")
	}
	return r.db.WithContext(ctx).Create(project).Error
}

// GetProject는 식별자로 프로젝트를 조회합니다.
func (r *Repository) GetProject(ctx context.Context, projectID string) (*Project, error) {
	if projectID == "" {
		return nil, fmt.Errorf("storage: empty projectID")
	}
	var project Project
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects는 최근 갱신 순으로 프로젝트 목록을 반환합니다.
func (r *Repository) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// TouchProject는 프로젝트의 갱신 시각을 현재로 갱신합니다.
func (r *Repository) TouchProject(ctx context.Context, projectID string) error {
	if projectID == "" {
		return fmt.Errorf("storage: empty projectID")
	}
	return r.db.WithContext(ctx).
		Model(&Project{}).
		Where("project_id = ?", projectID).
		Update("updated_at", time.Now()).Error
}

// UpsertReviewResult는 (projectID, agentType) 복합 키로 평가 결과를 갱신하거나 생성합니다.
// 같은 사이클 내에서 역할별로 여러 번 호출되며, 각 상태 전이가 개별 쓰기입니다.
func (r *Repository) UpsertReviewResult(ctx context.Context, projectID, agentType, status, content, errMsg string) error {
	if projectID == "" {
		return fmt.Errorf("storage: empty projectID")
	}
	if agentType == "" {
		return fmt.Errorf("storage: empty agentType")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "agent_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "content", "error", "updated_at"}),
		}).
		Create(&ReviewResult{
			ProjectID: projectID,
			AgentType: agentType,
			Status:    status,
			Content:   content,
			Error:     errMsg,
		}).Error
}

// ListReviewResults는 프로젝트의 모든 평가 결과를 agent_type 기준으로 반환합니다.
func (r *Repository) ListReviewResults(ctx context.Context, projectID string) (map[string]ReviewResult, error) {
	if projectID == "" {
		return nil, fmt.Errorf("storage: empty projectID")
	}
	var results []ReviewResult
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	byAgent := make(map[string]ReviewResult, len(results))
	for _, result := range results {
		byAgent[result.AgentType] = result
	}
	return byAgent, nil
}

// ResetReviewResults는 새 사이클 시작 전에 지정된 역할들의 상태를 IDLE로 초기화합니다.
// 이전 사이클의 content/error는 병합하지 않고 폐기합니다.
func (r *Repository) ResetReviewResults(ctx context.Context, projectID string, agentTypes ...string) error {
	if projectID == "" {
		return fmt.Errorf("storage: empty projectID")
	}
	for _, agentType := range agentTypes {
		if err := r.UpsertReviewResult(ctx, projectID, agentType, AgentStatusIdle, "", ""); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceProjectMaterials는 프로젝트의 특정 구분 자료를 전달된 목록으로 교체합니다.
func (r *Repository) ReplaceProjectMaterials(ctx context.Context, projectID, kind string, materials []ProjectMaterial) error {
	if projectID == "" {
		return fmt.Errorf("storage: empty projectID")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ? AND kind = ?", projectID, kind).
			Delete(&ProjectMaterial{}).Error; err != nil {
			return err
		}
		if len(materials) == 0 {
			return nil
		}
		return tx.Create(&materials).Error
	})
}

// ListProjectMaterials는 프로젝트의 자료 목록을 구분 필터와 함께 반환합니다.
func (r *Repository) ListProjectMaterials(ctx context.Context, projectID string, kinds ...string) ([]ProjectMaterial, error) {
	if projectID == "" {
		return nil, fmt.Errorf("storage: empty projectID")
	}
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if len(kinds) > 0 {
		q = q.Where("kind IN ?", kinds)
	}
	var materials []ProjectMaterial
	if err := q.Order("created_at ASC").Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

// AppendChatMessage는 채팅 메시지 한 건을 기록합니다. 메시지 식별자는 내부에서 생성합니다.
func (r *Repository) AppendChatMessage(ctx context.Context, projectID, role, text string) error {
	if projectID == "" {
		return fmt.Errorf("storage: empty projectID")
	}
	message := ChatMessage{
		MessageID: uuid.NewString(),
		ProjectID: projectID,
		Role:      role,
		Text:      text,
	}
	return r.db.WithContext(ctx).Create(&message).Error
}

// ListChatMessages는 프로젝트의 채팅 이력을 시간순으로 반환합니다.
func (r *Repository) ListChatMessages(ctx context.Context, projectID string) ([]ChatMessage, error) {
	if projectID == "" {
		return nil, fmt.Errorf("storage: empty projectID")
	}
	var messages []ChatMessage
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// GetReviewTemplate은 템플릿 식별자로 평가 템플릿을 조회합니다.
func (r *Repository) GetReviewTemplate(ctx context.Context, templateID string) (*ReviewTemplate, error) {
	if templateID == "" {
		return nil, fmt.Errorf("storage: empty templateID")
	}
	var template ReviewTemplate
	if err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		First(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

// ListReviewTemplates는 평가 템플릿 목록을 분류 필터와 함께 반환합니다.
func (r *Repository) ListReviewTemplates(ctx context.Context, categories ...string) ([]ReviewTemplate, error) {
	q := r.db.WithContext(ctx).Model(&ReviewTemplate{})
	if len(categories) > 0 {
		q = q.Where("category IN ?", categories)
	}
	var templates []ReviewTemplate
	if err := q.Order("created_at ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}
