package expert_test

import (
	"context"
	"sync"
	"testing"

	"github.com/smartgrant-oss/app/internal/expert"
	"github.com/smartgrant-oss/app/internal/gateway"
	"github.com/smartgrant-oss/app/internal/review"
	"github.com/smartgrant-oss/app/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type profileCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []gateway.Request
}

func (c *profileCompleter) Complete(_ context.Context, req gateway.Request) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()
	if err := c.errs[req.Profile]; err != nil {
		return "", err
	}
	return c.responses[req.Profile], nil
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []string
	content  string
	errMsg   string
}

func (s *statusRecorder) UpsertReviewResult(_ context.Context, _, agentType, status, content, errMsg string) error {
	if agentType != storage.AgentTypeExpertHunter {
		panic("unexpected agent type: " + agentType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	s.content = content
	s.errMsg = errMsg
	return nil
}

func testMaterials() []review.Document {
	return []review.Document{
		{ID: "m1", Name: "申报书.pdf", Content: "固态电池电解质材料研发项目"},
	}
}

func TestRecommendPipeline(t *testing.T) {
	completer := &profileCompleter{
		responses: map[string]string{
			gateway.ProfileKeywords:     `{"keywords":["固态电池"],"domains":["材料科学"]}`,
			gateway.ProfileExpertSearch: sampleExpertMarkdown,
		},
	}
	store := &statusRecorder{}
	rec := expert.NewRecommender(zaptest.NewLogger(t), completer, nil, store, "test/expert")

	content, err := rec.Recommend(context.Background(), "proj-001", testMaterials())
	require.NoError(t, err)
	require.Equal(t, sampleExpertMarkdown, content)

	require.Equal(t, []string{storage.AgentStatusThinking, storage.AgentStatusCompleted}, store.statuses)
	require.Equal(t, sampleExpertMarkdown, store.content)

	// 추천 프롬프트에 추출된 키워드/영역이 포함됨
	last := completer.calls[len(completer.calls)-1]
	require.Equal(t, gateway.ProfileExpertSearch, last.Profile)
	require.Contains(t, last.Messages[0].Content, "【项目技术领域】固态电池")
	require.Contains(t, last.Messages[0].Content, "【学科方向】材料科学")
	require.Contains(t, last.Messages[1].Content, "【项目材料摘要】")
}

func TestRecommendGenerationFailure(t *testing.T) {
	completer := &profileCompleter{
		responses: map[string]string{
			gateway.ProfileKeywords: `{"keywords":["固态电池"]}`,
		},
		errs: map[string]error{
			gateway.ProfileExpertSearch: gateway.NewUpstreamError("test/expert", 502, "bad gateway", nil),
		},
	}
	store := &statusRecorder{}
	rec := expert.NewRecommender(zaptest.NewLogger(t), completer, nil, store, "test/expert")

	_, err := rec.Recommend(context.Background(), "proj-001", testMaterials())
	require.Error(t, err)
	require.Equal(t, []string{storage.AgentStatusThinking, storage.AgentStatusError}, store.statuses)
	require.Contains(t, store.errMsg, "502")
}

func TestRecommendKeywordFailureDegrades(t *testing.T) {
	// 키워드 추출 실패는 사전 추출로 강등되고 파이프라인은 계속됨
	completer := &profileCompleter{
		responses: map[string]string{
			gateway.ProfileExpertSearch: sampleExpertMarkdown,
		},
		errs: map[string]error{
			gateway.ProfileKeywords: gateway.NewUpstreamError("test/expert", 503, "down", nil),
		},
	}
	rec := expert.NewRecommender(zaptest.NewLogger(t), completer, nil, nil, "test/expert")

	content, err := rec.Recommend(context.Background(), "proj-001", testMaterials())
	require.NoError(t, err)
	require.NotEmpty(t, content)

	last := completer.calls[len(completer.calls)-1]
	require.Contains(t, last.Messages[0].Content, "固态电池")
}

func TestRecommendWithMockGatewayIsDeterministic(t *testing.T) {
	mock := gateway.NewMockCompleter(zaptest.NewLogger(t), 0)
	rec := expert.NewRecommender(zaptest.NewLogger(t), mock, nil, nil, "test/expert")

	first, err := rec.Recommend(context.Background(), "", testMaterials())
	require.NoError(t, err)
	second, err := rec.Recommend(context.Background(), "", testMaterials())
	require.NoError(t, err)
	require.Equal(t, first, second)

	// mock 출력도 실제 파서로 파싱 가능한 3단 구조여야 함
	experts := expert.ParseExpertTable(first)
	require.NotEmpty(t, experts)
	tiers := map[expert.Tier]bool{}
	for _, e := range experts {
		tiers[e.Tier] = true
	}
	require.True(t, tiers[expert.TierLocal])
	require.True(t, tiers[expert.TierRegional])
	require.True(t, tiers[expert.TierNational])
}

func TestRecommendNoMaterials(t *testing.T) {
	completer := &profileCompleter{responses: map[string]string{}}
	store := &statusRecorder{}
	rec := expert.NewRecommender(zaptest.NewLogger(t), completer, nil, store, "test/expert")

	_, err := rec.Recommend(context.Background(), "proj-001", []review.Document{
		{ID: "m1", Content: "   "},
	})
	require.ErrorIs(t, err, expert.ErrNoMaterials)

	// 모델 호출 없이 즉시 실패
	require.Empty(t, completer.calls)
	require.Equal(t, []string{storage.AgentStatusThinking, storage.AgentStatusError}, store.statuses)
}
