package review

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/smartgrant-oss/app/internal/gateway"
	"go.uber.org/zap"
)

// ProjectMetadata는 업로드 자료에서 추출한 프로젝트 기본 정보입니다.
type ProjectMetadata struct {
	Source       string `json:"source"`
	ProjectName  string `json:"projectName"`
	Organization string `json:"organization"`
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

func defaultMetadata() ProjectMetadata {
	return ProjectMetadata{Source: "未知", ProjectName: "新项目", Organization: "未知"}
}

// ExtractProjectMetadata는 자료 텍스트에서 출처/프로젝트명/기관명을 추출합니다.
// 게이트웨이 실패나 파싱 실패 시 기본값을 반환하며 에러를 반환하지 않습니다 —
// 메타데이터는 편의 기능이고 평가 파이프라인을 막아서는 안 됩니다.
func (o *Orchestrator) ExtractProjectMetadata(ctx context.Context, content string) ProjectMetadata {
	if strings.TrimSpace(content) == "" {
		return defaultMetadata()
	}

	raw, err := o.completer.Complete(ctx, gateway.Request{
		Model:       o.registry.MetadataModel(),
		Messages:    []gateway.Message{{Role: gateway.RoleUser, Content: metadataPrompt(content)}},
		Temperature: metadataTemperature,
		Profile:     gateway.ProfileMetadata,
	})
	if err != nil {
		o.logger.Warn("Metadata extraction failed, using defaults", zap.Error(err))
		return defaultMetadata()
	}

	meta, ok := parseMetadata(raw)
	if !ok {
		o.logger.Warn("Metadata response not parseable, using defaults",
			zap.Int("response_len", len(raw)),
		)
		return defaultMetadata()
	}
	return meta
}

// parseMetadata는 모델 응답 본문에서 첫 JSON 객체를 찾아 디코딩합니다.
// 코드펜스나 설명 문장에 감싸여 와도 허용합니다.
func parseMetadata(raw string) (ProjectMetadata, bool) {
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return ProjectMetadata{}, false
	}

	var meta ProjectMetadata
	if err := json.Unmarshal([]byte(match), &meta); err != nil {
		return ProjectMetadata{}, false
	}

	if strings.TrimSpace(meta.Source) == "" {
		meta.Source = "未知"
	}
	if strings.TrimSpace(meta.ProjectName) == "" {
		meta.ProjectName = "新项目"
	}
	if strings.TrimSpace(meta.Organization) == "" {
		meta.Organization = "未知"
	}
	return meta, true
}
