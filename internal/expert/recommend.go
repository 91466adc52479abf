package expert

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartgrant-oss/app/internal/gateway"
	"github.com/smartgrant-oss/app/internal/review"
	"github.com/smartgrant-oss/app/internal/storage"
	"go.uber.org/zap"
)

// 추천 프롬프트에 포함하는 검색 결과 상한
const maxSearchContext = 8

// 자료 1건당 프롬프트에 포함하는 최대 길이 (rune)
const materialSummaryLimit = 2500

// StatusStore는 전문가 추천 진행 상태를 기록하는 협력자입니다.
// *storage.Repository가 만족합니다. 쓰기 실패는 추천 진행을 중단시키지 않습니다.
type StatusStore interface {
	UpsertReviewResult(ctx context.Context, projectID, agentType, status, content, errMsg string) error
}

// Recommender는 전문가 추천 파이프라인을 구동합니다.
// 검색 클라이언트가 nil이면 웹 검색 단계를 건너뛰고 모델 지식만으로 추천합니다.
type Recommender struct {
	logger    *zap.Logger
	completer gateway.Completer
	search    *TavilyClient
	store     StatusStore
	model     string
}

// NewRecommender는 새 Recommender를 생성합니다. search와 store는 nil일 수 있습니다.
func NewRecommender(logger *zap.Logger, completer gateway.Completer, search *TavilyClient, store StatusStore, model string) *Recommender {
	return &Recommender{
		logger:    logger,
		completer: completer,
		search:    search,
		store:     store,
		model:     model,
	}
}

// Recommend는 프로젝트 자료로부터 전문가 추천 표(마크다운)를 생성합니다.
//
// 파이프라인: 키워드 추출 → 전문가 후보 웹 검색 → 추천 표 생성.
// 앞 두 단계의 실패는 축소된 입력으로 강등되고, 마지막 생성 단계의 실패만 에러입니다.
// 반환값은 파싱하지 않은 원문 마크다운입니다: 표 형태가 어긋나더라도 호출자는
// 원문을 그대로 표시할 수 있습니다 (ParseExpertTable은 선택적 후처리).
func (r *Recommender) Recommend(ctx context.Context, projectID string, materials []review.Document) (string, error) {
	r.setStatus(ctx, projectID, storage.AgentStatusThinking, "", "")

	var contents []string
	for _, doc := range materials {
		contents = append(contents, doc.Content)
	}
	projectContent := strings.Join(contents, "\n")
	if strings.TrimSpace(projectContent) == "" {
		r.setStatus(ctx, projectID, storage.AgentStatusError, "", ErrNoMaterials.Error())
		return "", ErrNoMaterials
	}

	analysis := extractKeywords(ctx, r.logger, r.completer, r.model, projectContent)
	r.logger.Info("Keyword analysis completed",
		zap.Strings("keywords", analysis.Keywords),
		zap.Strings("domains", analysis.Domains),
	)

	var searchResults []SearchResult
	if r.search != nil {
		searchResults = r.search.SearchExperts(ctx, analysis.Keywords)
	}

	content, err := r.completer.Complete(ctx, gateway.Request{
		Model: r.model,
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Content: recommendSystemPrompt(analysis, searchResults)},
			{Role: gateway.RoleUser, Content: recommendUserPrompt(materials)},
		},
		Temperature: 0.2,
		Profile:     gateway.ProfileExpertSearch,
	})
	if err != nil {
		r.setStatus(ctx, projectID, storage.AgentStatusError, "", err.Error())
		return "", err
	}

	r.setStatus(ctx, projectID, storage.AgentStatusCompleted, content, "")
	return content, nil
}

func (r *Recommender) setStatus(ctx context.Context, projectID, status, content, errMsg string) {
	if r.store == nil || projectID == "" {
		return
	}
	if err := r.store.UpsertReviewResult(ctx, projectID, storage.AgentTypeExpertHunter, status, content, errMsg); err != nil {
		r.logger.Warn("Expert status write failed (ignored)",
			zap.String("project_id", projectID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

func recommendSystemPrompt(analysis KeywordAnalysis, searchResults []SearchResult) string {
	var searchContext strings.Builder
	if len(searchResults) > 0 {
		searchContext.WriteString("\n\n【网络搜索结果】：\n")
		for i, r := range searchResults {
			if i >= maxSearchContext {
				break
			}
			fmt.Fprintf(&searchContext, "%d. %s (%s)\n", i+1, r.Title, r.URL)
		}
	}

	return fmt.Sprintf(`你是专家遴选专员。请为以下科研项目推荐 15 位评审专家，建立一个多维度、高水平的评审专家库。

【重要规则】
1. 只输出专家表格，不要输出任何其他内容（不要评论、不要项目分析）
2. 姓名必须是完整的中文人名（2-4个字），不能是职称或描述
3. 每位专家必须填写完整的5列信息
4. 专家背景需要多元化，覆盖学术界、产业界和投资界

【地域分布要求】
- 深圳本地：6 人（重点关注：深圳大学、南科大、鹏城实验室、深圳先进院、华为、腾讯、比亚迪、大疆等）
- 广东省内（非深圳）：5 人（重点关注：中山大学、华南理工、季华实验室、松山湖实验室等）
- 全国知名专家：4 人（行业顶级专家，不限地域）

【专家类型结构】
- 学术界（高校教授/研究员）：约 50%%
- 产业界（企业CTO/技术总监/首席科学家）：约 40%%
- 投资/行业专家（知名机构合伙人/行业协会专家）：约 10%%

【输出格式 - 严格按此格式】

## 深圳本地专家

| 姓名 | 单位 | 职称 | 研究方向 | 推荐理由 |
|------|------|------|----------|----------|
| 王明华 | 南方科技大学 | 教授 | 固态电池材料 | 固态电解质领域专家，主持多项国家级项目 |
| 张伟强 | 比亚迪股份 | 技术总监 | 动力电池 | 负责电池技术研发，了解产业化需求 |
| ... | ... | ... | ... | ... |

## 广东省内专家

| 姓名 | 单位 | 职称 | 研究方向 | 推荐理由 |
|------|------|------|----------|----------|
| ... | ... | ... | ... | ... |

## 全国专家

| 姓名 | 单位 | 职称 | 研究方向 | 推荐理由 |
|------|------|------|----------|----------|
| ... | ... | ... | ... | ... |

【项目技术领域】%s
【学科方向】%s%s`,
		strings.Join(analysis.Keywords, "、"),
		strings.Join(analysis.Domains, "、"),
		searchContext.String())
}

func recommendUserPrompt(materials []review.Document) string {
	var b strings.Builder
	b.WriteString("【项目材料摘要】\n")
	for _, doc := range materials {
		b.WriteString(truncateRunes(doc.Content, materialSummaryLimit))
		b.WriteString("\n")
	}
	b.WriteString("\n\n请按照格式输出专家推荐表格：")
	return b.String()
}
