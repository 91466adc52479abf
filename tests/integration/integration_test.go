package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartgrant-oss/app/internal/common"
	"github.com/smartgrant-oss/app/internal/expert"
	"github.com/smartgrant-oss/app/internal/gateway"
	"github.com/smartgrant-oss/app/internal/review"
	"github.com/smartgrant-oss/app/internal/server"
	"github.com/smartgrant-oss/app/internal/storage"
	"github.com/smartgrant-oss/app/internal/testutil/mocks"
)

// TestMain은 통합 테스트 실행 전후에 필요한 설정을 수행합니다.
func TestMain(m *testing.M) {
	if err := setupIntegrationEnvironment(); err != nil {
		os.Exit(1)
	}

	code := m.Run()

	teardownIntegrationEnvironment()

	os.Exit(code)
}

// setupIntegrationEnvironment는 통합 테스트 환경을 초기화합니다.
func setupIntegrationEnvironment() error {
	if err := os.Setenv("SMARTGRANT_ENV", "integration"); err != nil {
		return err
	}
	if err := os.Setenv("SMARTGRANT_LOG_LEVEL", "info"); err != nil {
		return err
	}
	// 외부 호출 없이 mock 전송으로 고정
	return os.Setenv("SMARTGRANT_TRANSPORT_MODE", "mock")
}

// teardownIntegrationEnvironment는 통합 테스트 환경을 정리합니다.
func teardownIntegrationEnvironment() {
	for _, key := range []string{"SMARTGRANT_ENV", "SMARTGRANT_LOG_LEVEL", "SMARTGRANT_TRANSPORT_MODE"} {
		if err := os.Unsetenv(key); err != nil {
			panic("환경 변수 제거 실패 (" + key + "): " + err.Error())
		}
	}
}

// IntegrationTestSetup은 통합 테스트 설정을 관리합니다.
type IntegrationTestSetup struct {
	T      *testing.T
	Ctx    context.Context
	Cancel context.CancelFunc
	Server *httptest.Server
	Repo   *storage.Repository

	cleanupFuncs []func()
}

var setupSeq int

// setupTest는 mock 게이트웨이로 전체 서비스 스택을 조립합니다.
// completer가 nil이면 기본 MockCompleter를 사용합니다.
func setupTest(t *testing.T, completer gateway.Completer) *IntegrationTestSetup {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

	// 테스트 간 데이터 공유를 막기 위해 DSN을 분리합니다
	setupSeq++
	dsn := fmt.Sprintf("file:integration%d?mode=memory&cache=shared", setupSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrate(db))

	repo, err := storage.NewRepository(db)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	if completer == nil {
		completer = gateway.NewMockCompleter(logger, 0)
	}
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

	srv := server.NewServer(logger, ":0", orch, recommender, repo)
	ts := httptest.NewServer(srv.Handler())

	setup := &IntegrationTestSetup{
		T:      t,
		Ctx:    ctx,
		Cancel: cancel,
		Server: ts,
		Repo:   repo,
	}
	setup.AddCleanup(cancel)
	setup.AddCleanup(ts.Close)
	setup.AddCleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return setup
}

// AddCleanup은 정리 함수를 추가합니다.
func (s *IntegrationTestSetup) AddCleanup(fn func()) {
	s.cleanupFuncs = append(s.cleanupFuncs, fn)
}

// Cleanup은 모든 정리 작업을 역순으로 수행합니다.
func (s *IntegrationTestSetup) Cleanup() {
	for i := len(s.cleanupFuncs) - 1; i >= 0; i-- {
		s.cleanupFuncs[i]()
	}
}

func (s *IntegrationTestSetup) postJSON(path string, payload any) *http.Response {
	s.T.Helper()
	body, err := json.Marshal(payload)
	require.NoError(s.T, err)
	resp, err := http.Post(s.Server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(s.T, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func reviewPayload(projectID string) map[string]any {
	return map[string]any{
		"projectId": projectID,
		"materials": []review.Document{
			{ID: "m-1", Name: "申报书.pdf", Content: "固态电池电解质界面改性研究，聚焦硫化物电解质的量产工艺。", SourceKind: "file"},
		},
		"guidelines": []review.Document{
			{ID: "g-1", Name: "申报指南.pdf", Content: "深圳市新能源重点专项申报指南。", SourceKind: "file"},
		},
	}
}

// TestEndToEndWorkflow는 프로젝트 생성부터 평가, 대화, 전문가 추천까지 전체 흐름을 검증합니다.
func TestEndToEndWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("통합 테스트는 짧은 테스트 모드에서 건너뜀")
	}

	t.Run("전체 워크플로우 성공 케이스", func(t *testing.T) {
		setup := setupTest(t, nil)
		defer setup.Cleanup()

		// 1. 프로젝트 생성
		resp := setup.postJSON("/api/projects", map[string]any{
			"name":    "固态电池中试线建设",
			"orgName": "深圳先进电池研究院",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := decodeBody(t, resp)
		projectID, _ := created["projectId"].(string)
		require.NotEmpty(t, projectID)

		// 2. 일괄 평가 실행
		resp = setup.postJSON("/api/review", reviewPayload(projectID))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := decodeBody(t, resp)
		require.Equal(t, true, result["success"])
		reviews, ok := result["reviews"].([]any)
		require.True(t, ok)
		require.Len(t, reviews, 3)

		final, ok := result["finalReport"].(map[string]any)
		require.True(t, ok)
		require.Contains(t, final["content"], "专家组综合评审决议")

		// 3. 저장된 결과 조회
		req, err := http.NewRequestWithContext(setup.Ctx, http.MethodGet,
			setup.Server.URL+"/api/projects/"+projectID+"/results", nil)
		require.NoError(t, err)
		getResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, getResp.StatusCode)
		results, ok := decodeBody(t, getResp)["results"].(map[string]any)
		require.True(t, ok)
		require.Contains(t, results, storage.AgentTypeSynthesizer)

		// 4. 평가 결과 기반 대화
		resp = setup.postJSON("/api/chat", map[string]any{
			"projectId":   projectID,
			"message":     "主要的技术风险是什么？",
			"finalReport": "# 综合评审报告",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		chat := decodeBody(t, resp)
		require.Equal(t, true, chat["success"])
		require.NotEmpty(t, chat["response"])

		stored, err := setup.Repo.ListChatMessages(setup.Ctx, projectID)
		require.NoError(t, err)
		require.Len(t, stored, 2)

		// 5. 전문가 추천
		resp = setup.postJSON("/api/expert", map[string]any{
			"projectId": projectID,
			"materials": []review.Document{
				{ID: "m-1", Content: "固态电池电解质研究"},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		recommendation := decodeBody(t, resp)
		require.Equal(t, true, recommendation["success"])
		require.Contains(t, recommendation["content"], "深圳本地专家")
	})

	t.Run("에러 처리 시나리오", func(t *testing.T) {
		completer := mocks.NewScriptedCompleter()
		completer.SetErrorMessage(gateway.ProfileSynthesizer, "模型服务暂时不可用")

		setup := setupTest(t, completer)
		defer setup.Cleanup()

		resp := setup.postJSON("/api/review", reviewPayload("proj-fail"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := decodeBody(t, resp)

		// 종합 단계 실패 시에도 평가자 부분 결과는 유지됩니다
		require.Equal(t, false, result["success"])
		reviews, ok := result["reviews"].([]any)
		require.True(t, ok)
		require.Len(t, reviews, 3)

		final, ok := result["finalReport"].(map[string]any)
		require.True(t, ok)
		require.Contains(t, final["error"], "模型服务暂时不可用")

		// 평가자 3회 + 종합 1회 호출
		require.Len(t, completer.CallsFor(gateway.ProfileReviewer), 3)
		require.Len(t, completer.CallsFor(gateway.ProfileSynthesizer), 1)
	})
}

// TestStreamingIntegration은 SSE 스트리밍 평가 흐름을 검증합니다.
func TestStreamingIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("통합 테스트는 짧은 테스트 모드에서 건너뜀")
	}

	setup := setupTest(t, nil)
	defer setup.Cleanup()

	body, err := json.Marshal(reviewPayload("proj-stream"))
	require.NoError(t, err)
	resp, err := http.Post(setup.Server.URL+"/api/review/stream", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 6 || line[:6] != "data: " {
			continue
		}
		var event review.Event
		require.NoError(t, json.Unmarshal([]byte(line[6:]), &event))
		types = append(types, string(event.Type))
	}
	require.NoError(t, scanner.Err())

	require.Equal(t, "start", types[0])
	require.Equal(t, "complete", types[len(types)-1])
	require.Contains(t, types, "synthesizer_complete")

	// 스트리밍 종료 후 저장소에 최종 상태가 남아야 합니다
	results, err := setup.Repo.ListReviewResults(setup.Ctx, "proj-stream")
	require.NoError(t, err)
	require.Equal(t, storage.AgentStatusCompleted, results[storage.AgentTypeSynthesizer].Status)
}

// TestDatabaseIntegration은 저장소 계층의 CRUD 동작을 검증합니다.
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("통합 테스트는 짧은 테스트 모드에서 건너뜀")
	}

	t.Run("프로젝트 CRUD", func(t *testing.T) {
		setup := setupTest(t, nil)
		defer setup.Cleanup()

		project := &storage.Project{
			ProjectID: "proj-db",
			Name:      "量子计算专项",
			Source:    "深圳市科技创新委员会",
		}
		require.NoError(t, setup.Repo.CreateProject(setup.Ctx, project))

		got, err := setup.Repo.GetProject(setup.Ctx, "proj-db")
		require.NoError(t, err)
		require.Equal(t, "量子计算专项", got.Name)

		list, err := setup.Repo.ListProjects(setup.Ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("평가 결과 업서트와 리셋", func(t *testing.T) {
		setup := setupTest(t, nil)
		defer setup.Cleanup()

		require.NoError(t, setup.Repo.UpsertReviewResult(setup.Ctx,
			"proj-db", storage.AgentTypeReviewerA, storage.AgentStatusThinking, "", ""))
		require.NoError(t, setup.Repo.UpsertReviewResult(setup.Ctx,
			"proj-db", storage.AgentTypeReviewerA, storage.AgentStatusCompleted, "评审意见", ""))

		results, err := setup.Repo.ListReviewResults(setup.Ctx, "proj-db")
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Equal(t, storage.AgentStatusCompleted, results[storage.AgentTypeReviewerA].Status)

		require.NoError(t, setup.Repo.ResetReviewResults(setup.Ctx, "proj-db", storage.AgentTypeReviewerA))
		results, err = setup.Repo.ListReviewResults(setup.Ctx, "proj-db")
		require.NoError(t, err)
		require.Equal(t, storage.AgentStatusIdle, results[storage.AgentTypeReviewerA].Status)
	})
}
