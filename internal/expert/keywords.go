package expert

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/smartgrant-oss/app/internal/gateway"
	"go.uber.org/zap"
)

// 분석에 투입하는 자료 본문 최대 길이 (rune)
const keywordContentLimit = 4000

// 사전 기반 추출 시 반환하는 최대 키워드 수
const maxSimpleKeywords = 8

// KeywordAnalysis는 프로젝트 자료에서 추출한 기술 키워드 분석 결과입니다.
type KeywordAnalysis struct {
	Keywords      []string `json:"keywords"`
	Domains       []string `json:"domains"`
	SearchQueries []string `json:"searchQueries"`
}

var keywordJSONPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// 기술 영역별 용어 사전. 모델 기반 추출이 불가능할 때의 강등 경로입니다.
var techTermPatterns = []*regexp.Regexp{
	regexp.MustCompile(`固态电池|锂电池|电解质|正极|负极|隔膜|电芯`),
	regexp.MustCompile(`人工智能|机器学习|深度学习|大模型|神经网络|NLP|计算机视觉`),
	regexp.MustCompile(`新能源|光伏|风电|储能|氢能|碳中和`),
	regexp.MustCompile(`芯片|半导体|集成电路|封装|EDA|制程`),
	regexp.MustCompile(`生物医药|基因|蛋白质|细胞|抗体|mRNA|CAR-T`),
	regexp.MustCompile(`量子计算|量子通信|量子密钥|量子纠缠`),
	regexp.MustCompile(`机器人|自动驾驶|传感器|激光雷达|SLAM`),
	regexp.MustCompile(`5G|6G|物联网|边缘计算|云计算`),
}

func keywordPrompt(content string) string {
	return fmt.Sprintf(`# 任务
请深入分析以下科研项目申报材料，提取用于专家遴选的精准技术关键词。

# 分析要点
1. **核心技术领域**：项目涉及的主要技术方向（如：固态电解质、锂离子电池正极材料）
2. **细分研究方向**：具体的研究子领域（如：硫化物电解质、高镍三元材料）
3. **应用场景**：技术的目标应用领域（如：新能源汽车、储能系统）
4. **学科交叉**：涉及的交叉学科（如：材料科学、电化学、纳米技术）

# 输出格式（严格JSON）
{
  "keywords": ["关键词1", "关键词2", ...],  // 5-8个精准技术关键词
  "domains": ["领域1", "领域2", ...],       // 2-3个一级学科领域
  "searchQueries": ["查询1", "查询2", ...]  // 3-4个用于搜索专家的查询语句
}

# 项目材料
%s`, truncateRunes(content, keywordContentLimit))
}

// extractKeywords는 모델 기반 키워드 분석을 시도하고, 실패 시 사전 기반 추출로 강등합니다.
// 두 경로 모두 실패하지 않으므로 이 함수는 에러를 반환하지 않습니다.
func extractKeywords(ctx context.Context, logger *zap.Logger, completer gateway.Completer, model, content string) KeywordAnalysis {
	raw, err := completer.Complete(ctx, gateway.Request{
		Model:       model,
		Messages:    []gateway.Message{{Role: gateway.RoleUser, Content: keywordPrompt(content)}},
		Temperature: 0.2,
		Profile:     gateway.ProfileKeywords,
	})
	if err != nil {
		logger.Warn("Keyword analysis failed, falling back to dictionary extraction", zap.Error(err))
		return KeywordAnalysis{Keywords: extractKeywordsSimple(content)}
	}

	match := keywordJSONPattern.FindString(raw)
	if match == "" {
		logger.Warn("Keyword response contains no JSON, falling back to dictionary extraction")
		return KeywordAnalysis{Keywords: extractKeywordsSimple(content)}
	}

	var analysis KeywordAnalysis
	if err := json.Unmarshal([]byte(match), &analysis); err != nil {
		logger.Warn("Keyword JSON not parseable, falling back to dictionary extraction", zap.Error(err))
		return KeywordAnalysis{Keywords: extractKeywordsSimple(content)}
	}

	if len(analysis.Keywords) == 0 {
		analysis.Keywords = extractKeywordsSimple(content)
	}
	return analysis
}

// extractKeywordsSimple은 기술 용어 사전 매칭으로 키워드를 추출합니다.
// 네트워크/모델 의존이 전혀 없는 순수 함수입니다.
func extractKeywordsSimple(content string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, pattern := range techTermPatterns {
		for _, match := range pattern.FindAllString(content, -1) {
			if seen[match] {
				continue
			}
			seen[match] = true
			keywords = append(keywords, match)
			if len(keywords) >= maxSimpleKeywords {
				return keywords
			}
		}
	}
	return keywords
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
