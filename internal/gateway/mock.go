package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MockCompleter는 자격 증명 없이 동작하는 결정적(deterministic) Completer입니다.
// 실제 호출의 지연을 흉내내기 위해 인위적 지연 후, Profile별로 고정된 문서를 반환합니다.
// 동일 Profile에 대한 응답은 항상 같은 템플릿 형태를 가지므로
// 다운스트림 파싱/포매팅 로직을 네트워크 없이 검증할 수 있습니다.
type MockCompleter struct {
	logger *zap.Logger
	delay  time.Duration
}

// NewMockCompleter는 새 MockCompleter를 생성합니다.
func NewMockCompleter(logger *zap.Logger, delay time.Duration) *MockCompleter {
	return &MockCompleter{
		logger: logger,
		delay:  delay,
	}
}

// Complete는 Profile에 맞는 고정 응답을 반환합니다. 실패하지 않습니다(컨텍스트 취소 제외).
func (m *MockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	m.logger.Debug("mock completion",
		zap.String("model", req.Model),
		zap.String("profile", req.Profile),
	)

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	switch req.Profile {
	case ProfileExpertSearch:
		return mockExpertTable, nil
	case ProfileSynthesizer:
		return mockSynthesisReport, nil
	case ProfileKeywords:
		return mockKeywordJSON, nil
	case ProfileMetadata:
		return mockMetadataJSON, nil
	case ProfileChat:
		return mockChatReply, nil
	default:
		return mockReviewOpinion, nil
	}
}

// 역할별 고정 응답. 형태(표/다단 보고서/JSON)가 역할별로 구분되어야 합니다.
const (
	mockExpertTable = `## 深圳本地专家

| 姓名 | 单位 | 职称 | 研究方向 | 推荐理由 |
|------|------|------|----------|----------|
| 王明华 | 南方科技大学 | 教授 | 固态电池材料 | 固态电解质领域专家，主持多项国家级项目 |
| 张伟强 | 比亚迪股份 | 技术总监 | 动力电池 | 负责电池技术研发，了解产业化需求 |
| 陈立新 | 鹏城实验室 | 研究员 | 储能系统 | 长期从事储能系统集成与安全研究 |

## 广东省内专家

| 姓名 | 单位 | 职称 | 研究方向 | 推荐理由 |
|------|------|------|----------|----------|
| 李国强 | 中山大学 | 教授 | 电化学 | 电化学储能方向学术带头人 |
| 黄志远 | 华南理工大学 | 教授 | 新能源材料 | 新能源材料与器件方向资深专家 |

## 全国专家

| 姓名 | 单位 | 职称 | 研究方向 | 推荐理由 |
|------|------|------|----------|----------|
| 刘建军 | 清华大学 | 教授 | 能源材料 | 能源材料领域顶级专家，国家重点研发计划负责人 |
| 赵文博 | 中科院物理所 | 研究员 | 固态离子学 | 固态离子学方向权威，多项成果实现转化 |`

	mockSynthesisReport = `# 专家组综合评审决议

## 一、专家组综合结论
**[建议支持]**

专家组经综合研判，认为该项目技术路线清晰，创新性较强，团队基础扎实。虽在商业化路径上存在一定不确定性，但整体具备较好的培育价值。

## 二、意见一致性分析
1. **技术可行性**：三位专家均认可项目提出的核心算法架构，认为其具有较高的学术价值和落地潜力。
2. **团队资质**：一致认为团队配置合理，核心成员在相关领域具有深厚的研究积累。

## 三、分歧点分析
*   **市场前景**：专家C对短期内的市场渗透率持保留态度，而专家B认为应着眼于长期的技术壁垒构建。专家组最终认为，项目初期应聚焦于示范应用，逐步拓展市场。

## 四、项目核心优势
1.  **技术领先**：提出的异构融合架构在国内处于领先水平。
2.  **场景明确**：针对特定工业场景的优化方案具有很强的针对性。
3.  **产学研结合**：依托高校科研力量与企业工程化能力的结合。

## 五、关键问题清单
*   **数据安全**：需进一步完善数据隐私保护机制（专家A）。
*   **成本控制**：大规模部署时的硬件成本需进一步通过算法优化来降低（专家C）。

## 六、最终修改建议
建议申请方在实施方案中补充详细的数据安全合规性说明，并制定具体的年度成本下降路线图。`

	mockReviewOpinion = `# 项目评审意见

## 1. 合规性与形式审查
项目申报材料齐全，符合申报指南的基本要求。技术指标设定清晰，预算编制基本合理。
*   **符合度**：符合
*   **完整性**：完整

## 2. 技术创新与先进性
该项目提出了一种新的解决方案，具有一定的创新性。
*   **技术路线**：逻辑清晰，可行性较高。
*   **对比分析**：相比传统方法，在效率上有约 15%-20% 的提升预期。

## 3. 团队与资源保障
团队结构合理，包含技术专家和工程实施人员。依托单位具备相应的实验条件。

## 4. 问题与风险点
*   **风险 1**：市场推广难度可能被低估。
*   **风险 2**：部分核心部件依赖进口，存在供应链风险。

## 5. 评审结论
**[有条件推荐]**

建议进一步细化产业化实施路径。`

	mockKeywordJSON = `{
  "keywords": ["固态电池", "硫化物电解质", "高镍三元材料", "电芯集成", "热管理"],
  "domains": ["材料科学", "电化学"],
  "searchQueries": ["固态电池 专家 教授", "硫化物电解质 研究员", "动力电池 CTO 深圳"]
}`

	mockMetadataJSON = `{
  "source": "深圳市科技创新委员会",
  "projectName": "面向高安全性的高比能固态锂电池关键材料与技术研发",
  "organization": "深圳新能科技有限公司"
}`

	mockChatReply = `根据已上传的项目申报材料，该项目的核心技术路线围绕固态电解质材料展开。如需了解评审专家对具体风险点的意见，请参考综合评审决议的"关键问题清单"部分。`
)
