package expert

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tier는 추천 전문가의 지역 구분입니다.
type Tier string

const (
	TierLocal    Tier = "local"    // 深圳本地
	TierRegional Tier = "regional" // 广东省内
	TierNational Tier = "national" // 全国
)

// ExpertRecord는 추천 표에서 파싱한 전문가 1명입니다.
type ExpertRecord struct {
	Name   string `json:"name"`
	Org    string `json:"org"`
	Title  string `json:"title"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Tier   Tier   `json:"tier"`
}

// 인명으로 볼 수 없는 단어들. 모델이 셀을 채우지 못하고 넣는 직함/설명어입니다.
var invalidNameWords = []string{
	"教授", "研究员", "副教授", "讲师", "博士", "硕士",
	"院士", "主任", "总监", "经理", "工程师", "专家",
	"评审", "维度", "创新", "可行", "能力", "成本",
	"技术", "产线", "建设", "指标", "团队", "财务",
	"管理", "待定", "暂无", "未知", "其他", "备选",
}

// ParseExpertTable은 추천 마크다운에서 전문가 목록을 추출합니다.
//
// 모델 출력은 형태가 흔들리므로 관대하게 파싱합니다: 섹션 제목의 문구 변형을
// 키워드로 감지하고, 굵게 표시나 별표 장식은 제거하며, 유효하지 않은 행
// (인명이 아닌 이름, 자리표시자 단위)은 건너뜁니다.
// 유효한 전문가가 하나도 없으면 nil을 반환하며, 호출자는 원문 마크다운을
// 그대로 표시하는 강등 경로를 가져야 합니다.
func ParseExpertTable(content string) []ExpertRecord {
	var experts []ExpertRecord
	tier := TierLocal

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if !strings.HasPrefix(line, "|") {
			// 섹션 제목으로 지역 구분 전환
			switch {
			case strings.Contains(line, "深圳") || strings.Contains(line, "本地"):
				tier = TierLocal
			case strings.Contains(line, "广东") || strings.Contains(line, "省内") || strings.Contains(line, "区域"):
				tier = TierRegional
			case strings.Contains(line, "全国") || strings.Contains(line, "外地") || strings.Contains(line, "其他"):
				tier = TierNational
			}
			continue
		}

		// 구분선과 헤더 행 스킵
		if strings.Contains(line, "---") {
			continue
		}
		if strings.Contains(line, "姓名") || strings.Contains(line, "单位") || strings.Contains(line, "职称") {
			continue
		}

		cells := splitTableRow(line)
		if len(cells) < 3 {
			continue
		}

		name := cells[0]
		if !isValidChineseName(name) {
			continue
		}
		org := cells[1]
		if org == "" || org == "..." || len([]rune(org)) < 2 {
			continue
		}

		record := ExpertRecord{Name: name, Org: org, Title: cells[2], Tier: tier}
		if len(cells) > 3 {
			record.Field = cells[3]
		}
		if len(cells) > 4 {
			record.Reason = cells[4]
		}
		experts = append(experts, record)
	}

	return experts
}

// splitTableRow는 마크다운 표 행을 셀 목록으로 분해합니다. 강조 장식은 제거합니다.
func splitTableRow(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 3 {
		return nil
	}
	cells := make([]string, 0, len(parts)-2)
	for _, part := range parts[1 : len(parts)-1] {
		cell := strings.TrimSpace(part)
		cell = strings.ReplaceAll(cell, "**", "")
		cell = strings.ReplaceAll(cell, "*", "")
		cells = append(cells, cell)
	}
	return cells
}

// isValidChineseName은 문자열이 유효한 중국 인명인지 검사합니다.
// 2~4자의 한자(Han)로만 구성되어야 하고, 직함/설명어를 포함하면 안 됩니다.
func isValidChineseName(s string) bool {
	s = norm.NFC.String(s)
	runes := []rune(s)
	if len(runes) < 2 || len(runes) > 4 {
		return false
	}
	for _, r := range runes {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	for _, word := range invalidNameWords {
		if strings.Contains(s, word) {
			return false
		}
	}
	return true
}
