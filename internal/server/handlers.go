package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/smartgrant-oss/app/internal/expert"
	"github.com/smartgrant-oss/app/internal/review"
	"github.com/smartgrant-oss/app/internal/storage"
	"go.uber.org/zap"
)

// reviewRequest는 배치/스트리밍 평가 공통 요청 바디입니다.
type reviewRequest struct {
	ProjectID  string            `json:"projectId"`
	Materials  []review.Document `json:"materials"`
	Guidelines []review.Document `json:"guidelines"`
	TemplateID string            `json:"templateId,omitempty"`
}

type expertRequest struct {
	ProjectID string            `json:"projectId"`
	Materials []review.Document `json:"materials"`
}

type chatRequest struct {
	ProjectID   string            `json:"projectId"`
	Message     string            `json:"message"`
	History     []review.ChatTurn `json:"history,omitempty"`
	FinalReport string            `json:"finalReport,omitempty"`
}

type metadataRequest struct {
	Content string `json:"content"`
}

type createProjectRequest struct {
	ProjectID string `json:"projectId,omitempty"`
	Name      string `json:"name"`
	Source    string `json:"source,omitempty"`
	OrgName   string `json:"orgName,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReview는 배치 평가를 실행합니다.
// 평가자 일부가 실패해도 부분 결과와 함께 200을 반환합니다: 성공 여부는
// 바디의 success 필드와 각 결과의 상태로 전달됩니다.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "缺少必要参数")
		return
	}

	s.persistMaterials(r.Context(), req)

	result := s.orch.RunCycle(r.Context(), review.CycleRequest{
		ProjectID:  req.ProjectID,
		Materials:  req.Materials,
		Guidelines: req.Guidelines,
		TemplateID: req.TemplateID,
	})

	writeJSON(w, http.StatusOK, result)
}

// persistMaterials는 평가 요청에 포함된 자료를 구분별로 기록합니다.
// 같은 구분의 이전 자료는 교체되며, 기록 실패는 평가 진행을 막지 않습니다.
func (s *Server) persistMaterials(ctx context.Context, req reviewRequest) {
	if s.repo == nil {
		return
	}
	store := func(kind string, docs []review.Document) {
		if len(docs) == 0 {
			return
		}
		materials := make([]storage.ProjectMaterial, 0, len(docs))
		for _, doc := range docs {
			materialID := doc.ID
			if materialID == "" {
				materialID = uuid.NewString()
			}
			sourceKind := doc.SourceKind
			if sourceKind == "" {
				sourceKind = storage.SourceKindText
			}
			materials = append(materials, storage.ProjectMaterial{
				MaterialID: materialID,
				ProjectID:  req.ProjectID,
				Kind:       kind,
				SourceKind: sourceKind,
				FileName:   doc.Name,
				Content:    doc.Content,
			})
		}
		if err := s.repo.ReplaceProjectMaterials(ctx, req.ProjectID, kind, materials); err != nil {
			s.logger.Warn("Material persistence failed (ignored)",
				zap.String("project_id", req.ProjectID),
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
	}
	store(storage.MaterialKindMaterial, req.Materials)
	store(storage.MaterialKindGuideline, req.Guidelines)
}

// handleReviewStream은 스트리밍 평가를 실행하고 진행 이벤트를 SSE로 내보냅니다.
// 각 이벤트는 "data: <json>\n\n" 프레임 하나이며, 스트림은 핸들러 반환 시 정확히 한 번 닫힙니다.
func (s *Server) handleReviewStream(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "缺少必要参数")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "当前连接不支持流式响应")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(ev review.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("Event marshal failed", zap.Error(err))
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	s.persistMaterials(r.Context(), req)

	s.orch.RunCycleStream(r.Context(), review.CycleRequest{
		ProjectID:  req.ProjectID,
		Materials:  req.Materials,
		Guidelines: req.Guidelines,
		TemplateID: req.TemplateID,
	}, emit)
}

func (s *Server) handleExpert(w http.ResponseWriter, r *http.Request) {
	var req expertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if req.ProjectID == "" || len(req.Materials) == 0 {
		writeError(w, http.StatusBadRequest, "缺少必要参数")
		return
	}

	content, err := s.recommender.Recommend(r.Context(), req.ProjectID, req.Materials)
	if err != nil {
		s.logger.Error("Expert recommendation failed",
			zap.String("project_id", req.ProjectID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"content": content,
		// 파싱 실패(nil) 시 클라이언트는 content 원문을 그대로 표시
		"experts": expert.ParseExpertTable(content),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if req.ProjectID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "缺少必要参数")
		return
	}

	var chatStore review.ChatStore
	if s.repo != nil {
		chatStore = s.repo
	}

	reply, err := s.orch.Chat(r.Context(), chatStore, review.ChatRequest{
		ProjectID:   req.ProjectID,
		Message:     req.Message,
		History:     req.History,
		FinalReport: req.FinalReport,
	})
	if err != nil {
		s.logger.Error("Chat failed", zap.String("project_id", req.ProjectID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": reply,
	})
}

func (s *Server) handleExtractMetadata(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "缺少项目材料内容")
		return
	}

	meta := s.orch.ExtractProjectMetadata(r.Context(), req.Content)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"source":       meta.Source,
		"projectName":  meta.ProjectName,
		"organization": meta.Organization,
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "存储未启用")
		return
	}
	projects, err := s.repo.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "存储未启用")
		return
	}
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "缺少必要参数")
		return
	}
	if req.ProjectID == "" {
		req.ProjectID = uuid.NewString()
	}

	project := storage.Project{
		ProjectID: req.ProjectID,
		Name:      req.Name,
		Source:    req.Source,
		OrgName:   req.OrgName,
	}
	if err := s.repo.CreateProject(r.Context(), &project); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// handleProjectMaterials는 프로젝트에 기록된 자료 목록을 반환합니다.
// kind 쿼리 파라미터(material|guideline)로 구분을 필터링할 수 있습니다.
func (s *Server) handleProjectMaterials(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "存储未启用")
		return
	}
	projectID := r.PathValue("projectID")

	var kinds []string
	if kind := r.URL.Query().Get("kind"); kind != "" {
		kinds = append(kinds, kind)
	}
	materials, err := s.repo.ListProjectMaterials(r.Context(), projectID, kinds...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"materials": materials})
}

// handleProjectResults는 저장된 역할별 평가 상태/결과를 반환합니다.
// 프런트엔드가 새로고침 후 상태 기계를 복원할 때 사용합니다.
func (s *Server) handleProjectResults(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "存储未启用")
		return
	}
	projectID := r.PathValue("projectID")
	results, err := s.repo.ListReviewResults(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "存储未启用")
		return
	}
	templates, err := s.repo.ListReviewTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
