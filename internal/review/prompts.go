package review

import (
	"fmt"
	"strings"
	"time"
)

// buildContextContent는 지침 문서와 신청 자료를 하나의 사용자 메시지 본문으로 합칩니다.
// 문서가 하나도 없더라도 섹션 마커는 항상 포함되어, "자료 없음"이 프롬프트 계약의 일부가 됩니다.
func buildContextContent(materials, guidelines []Document) string {
	var b strings.Builder

	b.WriteString("\n\n【附件集合1：项目申报指南/政策要求】\n")
	if len(guidelines) == 0 {
		b.WriteString("（未提供具体指南文件）\n")
	} else {
		for i, doc := range guidelines {
			name := doc.Name
			if name == "" {
				name = "文本内容"
			}
			fmt.Fprintf(&b, "\n[指南文件 %d: %s]\n", i+1, name)
			b.WriteString(doc.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n【附件集合2：项目申报材料/商业计划书/附件】\n")
	if len(materials) == 0 {
		b.WriteString("（未提供项目申报材料）\n")
	} else {
		for i, doc := range materials {
			name := doc.Name
			if name == "" {
				name = "文本内容"
			}
			fmt.Fprintf(&b, "\n[申报材料 %d: %s]\n", i+1, name)
			b.WriteString(doc.Content)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// reviewerSystemPrompt는 평가자 시스템 프롬프트를 생성합니다.
// 모델별 출력 편차를 줄이기 위해 고정된 구조화 출력 템플릿을 강제합니다.
func reviewerSystemPrompt(spec AgentSpec, now time.Time) string {
	return fmt.Sprintf(`你是%s，资深科研项目评审专家，专业领域：%s。

请严格按照以下格式输出评审意见（不要修改格式结构，不要添加额外章节）：

---

# 项目评审意见书

评审专家：%s
评审日期：%s
项目名称：（从材料中提取）
申报单位：（从材料中提取）

---

## 一、合规性与形式审查

### 1.1 硬性指标核查

| 审查项目 | 指南要求 | 实际情况 | 符合性 |
|----------|----------|----------|--------|
| 负责人年龄 | ≤55周岁 | XX岁 | ✅符合/❌不符合 |
| 注册资金 | ≥2000万元 | XXX万元 | ✅符合/❌不符合 |
| 研发平台 | 省级及以上 | XXX | ✅符合/❌不符合 |
| 配套资金比例 | ≥2:1 | X:X | ✅符合/❌不符合 |
| （其他关键指标） | ... | ... | ... |

### 1.2 合规性结论

结论：✅ 合格 / ⚠️ 需补充材料 / ❌ **不合格**

---

## 二、技术创新与先进性

### 2.1 核心创新点
（用2-3句话概括最突出的技术创新）

### 2.2 技术路线评估
（技术路线是否科学可行？存在什么技术风险？）

### 2.3 国内外对标
（与国内外同类技术对比，处于什么水平？领先/持平/落后？）

---

## 三、团队与资源保障

### 3.1 团队能力
（核心成员背景是否匹配？有无关键人才缺失？）

### 3.2 依托单位条件
（研发设施、资金、产业化能力如何？）

---

## 四、问题与风险

> ⚠️ 以下是本项目存在的主要问题和风险：

| 风险类型 | 具体问题 | 严重程度 |
|----------|----------|----------|
| 技术风险 | （描述） | 高/中/低 |
| 团队风险 | （描述） | 高/中/低 |
| 财务风险 | （描述） | 高/中/低 |
| 市场风险 | （描述） | 高/中/低 |

---

## 五、综合评审结论

评审结果：🟢 推荐 / 🟡 有条件推荐 / 🔴 **不推荐**

核心判断依据：
（用2-3句话说明做出此判断的关键理由）

---`, spec.Name, spec.Focus, spec.Name, now.Format("2006-01-02"))
}

// reviewerMessages는 평가자 1명에 대한 메시지 목록을 구성합니다.
func reviewerMessages(spec AgentSpec, req CycleRequest, now time.Time) []promptMessage {
	return []promptMessage{
		{role: "system", content: reviewerSystemPrompt(spec, now)},
		{role: "user", content: buildContextContent(req.Materials, req.Guidelines) + "\n\n请严格按照上述格式输出评审意见："},
	}
}

// ReviewInput은 종합 보고 단계에 전달되는 (역할, 내용) 쌍입니다.
// 실패한 평가자의 Content는 빈 문자열입니다.
type ReviewInput struct {
	Spec    AgentSpec
	Content string
}

// synthesizerPrompt는 종합 보고관 프롬프트를 생성합니다.
// 평가자 수에 상관없이 (역할, 내용) 쌍의 목록을 받아 여섯 개 고정 섹션을 요구합니다.
func synthesizerPrompt(reviews []ReviewInput) string {
	var b strings.Builder

	b.WriteString(`角色：你是一名首席评审官（Chief Review Officer）。
任务：你收到了多位独立评审专家对同一个项目的评审意见。你的工作是汇总这些意见，进行交叉验证，并生成一份最终的《专家组综合评审决议》。
`)

	for _, review := range reviews {
		fmt.Fprintf(&b, "\n【%s 意见】（侧重%s）：\n%s\n", review.Spec.Name, review.Spec.Focus, review.Content)
	}

	b.WriteString(`
请撰写最终报告，要求：
1. **专家组综合结论**：明确给出最终结论（优先支持/建议支持/建议暂缓/不予支持）。
2. **意见一致性分析**：指出各位专家在哪些方面达成了强烈共识。
3. **分歧点分析**：(如果有) 指出专家意见不一致的地方，并给出你的最终判断。
4. **项目核心优势**：提炼3-4个最大的亮点。
5. **关键问题清单**：汇总所有专家指出的硬伤和风险。
6. **最终修改建议**：给申请方的具体整改建议。

风格：权威、全面、逻辑严密。`)

	return b.String()
}

// chatSystemPrompt는 평가 어시스턴트의 시스템 프롬프트를 생성합니다.
func chatSystemPrompt(finalReport string) string {
	reportContext := finalReport
	if reportContext == "" {
		reportContext = "暂无评审结论"
	}
	return fmt.Sprintf(`你是一个智能评审助手。用户正在就一个科研项目进行咨询。
请基于用户上传的"项目申报材料"和"申报指南"来回答问题。如果文件中没有提到，请如实告知。

【已有评审结论参考】：
%s`, reportContext)
}

// metadataPrompt는 프로젝트 메타데이터 추출 프롬프트를 생성합니다.
func metadataPrompt(content string) string {
	return fmt.Sprintf(`请从以下项目材料中提取关键信息，严格按照JSON格式返回：

{
  "source": "项目来源方或甲方名称（如：深圳市科技创新委员会、国家自然科学基金委等）",
  "projectName": "项目名称（如：面向高安全性的高比能固态锂电池关键材料与技术研发）",
  "organization": "项目承担单位（如：XX科技有限公司、XX大学等）"
}

如果某项信息无法提取，填写"未知"。

项目材料内容：
%s`, truncate(content, 3000))
}

// promptMessage는 gateway 의존 없이 프롬프트를 조립하기 위한 내부 표현입니다.
type promptMessage struct {
	role    string
	content string
}

// truncate는 rune 단위로 문자열을 자릅니다 (CJK 안전).
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
