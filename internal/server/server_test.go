package server_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartgrant-oss/app/internal/common"
	"github.com/smartgrant-oss/app/internal/expert"
	"github.com/smartgrant-oss/app/internal/gateway"
	"github.com/smartgrant-oss/app/internal/review"
	"github.com/smartgrant-oss/app/internal/server"
	"github.com/smartgrant-oss/app/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*httptest.Server, *storage.Repository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrate(db))

	repo, err := storage.NewRepository(db)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	completer := gateway.NewMockCompleter(logger, 0)
	registry := review.NewRegistry(common.ModelConfig{
		ReviewerA:    "test/reviewer-a",
		ReviewerB:    "test/reviewer-b",
		ReviewerC:    "test/reviewer-c",
		Synthesizer:  "test/synthesizer",
		Chat:         "test/chat",
		ExpertSearch: "test/expert",
		Metadata:     "test/metadata",
	})
	orch := review.NewOrchestrator(logger, completer, repo, repo, registry)
	recommender := expert.NewRecommender(logger, completer, nil, repo, "test/expert")

	s := server.NewServer(logger, ":0", orch, recommender, repo)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		sqlDB, err := db.DB()
		require.NoError(t, err)
		_ = sqlDB.Close()
	})

	return ts, repo
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func reviewPayload(projectID string) map[string]any {
	return map[string]any{
		"projectId": projectID,
		"materials": []map[string]string{
			{"id": "m1", "fileName": "申报书.pdf", "content": "固态电池项目申报材料"},
		},
		"guidelines": []map[string]string{
			{"id": "g1", "fileName": "指南.pdf", "content": "申报指南内容"},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestReviewEndpoint(t *testing.T) {
	ts, repo := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/review", reviewPayload("proj-api-1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, true, body["success"])
	reviews := body["reviews"].([]any)
	require.Len(t, reviews, 3)
	for _, raw := range reviews {
		entry := raw.(map[string]any)
		require.Equal(t, "COMPLETED", entry["status"])
		require.NotEmpty(t, entry["content"])
	}
	final := body["finalReport"].(map[string]any)
	require.Contains(t, final["content"], "专家组综合评审决议")

	// 결과가 저장소에도 반영됨
	results, err := repo.ListReviewResults(t.Context(), "proj-api-1")
	require.NoError(t, err)
	require.Equal(t, storage.AgentStatusCompleted, results[storage.AgentTypeSynthesizer].Status)
}

func TestReviewEndpointMissingProject(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/review", map[string]any{"materials": []any{}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, decodeBody(t, resp)["error"], "缺少必要参数")
}

func TestReviewStreamEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/review/stream", reviewPayload("proj-stream-1"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev review.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		types = append(types, string(ev.Type))
	}
	require.NoError(t, scanner.Err())

	require.Equal(t, []string{
		"start",
		"agent_start", "agent_complete",
		"agent_start", "agent_complete",
		"agent_start", "agent_complete",
		"synthesizer_start", "synthesizer_complete",
		"complete",
	}, types)
}

func TestExpertEndpoint(t *testing.T) {
	ts, repo := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/expert", map[string]any{
		"projectId": "proj-expert-1",
		"materials": []map[string]string{{"id": "m1", "content": "固态电池材料项目"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, true, body["success"])
	require.Contains(t, body["content"], "深圳本地专家")
	require.NotEmpty(t, body["experts"])

	results, err := repo.ListReviewResults(t.Context(), "proj-expert-1")
	require.NoError(t, err)
	require.Equal(t, storage.AgentStatusCompleted, results[storage.AgentTypeExpertHunter].Status)
}

func TestExpertEndpointMissingMaterials(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/expert", map[string]any{"projectId": "p"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestChatEndpoint(t *testing.T) {
	ts, repo := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/chat", map[string]any{
		"projectId":   "proj-chat-1",
		"message":     "主要风险是什么？",
		"finalReport": "综合结论：建议支持",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, true, body["success"])
	require.NotEmpty(t, body["response"])

	messages, err := repo.ListChatMessages(t.Context(), "proj-chat-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, storage.ChatRoleUser, messages[0].Role)
	require.Equal(t, storage.ChatRoleModel, messages[1].Role)
}

func TestExtractMetadataEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/extract-metadata", map[string]any{
		"content": "深圳市科技创新委员会项目申报材料……",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, true, body["success"])
	require.Equal(t, "深圳市科技创新委员会", body["source"])
	require.NotEmpty(t, body["projectName"])
	require.NotEmpty(t, body["organization"])
}

func TestProjectLifecycleEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/projects", map[string]any{
		"name":    "固态电池关键材料研发",
		"source":  "深圳市科技创新委员会",
		"orgName": "深圳新能科技有限公司",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	projectID := created["projectId"].(string)
	require.NotEmpty(t, projectID)

	listResp, err := http.Get(ts.URL + "/api/projects")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	projects := decodeBody(t, listResp)["projects"].([]any)
	require.Len(t, projects, 1)

	// 평가 실행 후 결과 조회
	reviewResp := postJSON(t, ts.URL+"/api/review", reviewPayload(projectID))
	require.Equal(t, http.StatusOK, reviewResp.StatusCode)
	reviewResp.Body.Close()

	resultsResp, err := http.Get(ts.URL + "/api/projects/" + projectID + "/results")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resultsResp.StatusCode)
	results := decodeBody(t, resultsResp)["results"].(map[string]any)
	require.Contains(t, results, storage.AgentTypeReviewerA)
	require.Contains(t, results, storage.AgentTypeSynthesizer)
}

func TestReviewPersistsMaterials(t *testing.T) {
	ts, repo := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/review", reviewPayload("proj-materials-1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	materialsResp, err := http.Get(ts.URL + "/api/projects/proj-materials-1/materials")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, materialsResp.StatusCode)
	materials := decodeBody(t, materialsResp)["materials"].([]any)
	require.Len(t, materials, 2)

	// kind 필터로 구분 조회
	stored, err := repo.ListProjectMaterials(t.Context(), "proj-materials-1", storage.MaterialKindGuideline)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "指南.pdf", stored[0].FileName)

	// 같은 구분 재평가 시 교체 (누적 아님)
	resp = postJSON(t, ts.URL+"/api/review", reviewPayload("proj-materials-1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	stored, err = repo.ListProjectMaterials(t.Context(), "proj-materials-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
}
