package gateway

import (
	"errors"
	"fmt"
)

// 기본 에러 타입
var (
	// ErrNoAPIKey는 live 모드에서 자격 증명이 없을 때 반환됩니다.
	ErrNoAPIKey = errors.New("openrouter api key not configured")

	// ErrEmptyCompletion은 응답에 유효한 생성 텍스트가 없을 때 반환됩니다.
	ErrEmptyCompletion = errors.New("model returned no completion content")
)

// UpstreamError는 원격 완성 서비스 호출 실패를 래핑합니다.
// 비 2xx 응답, 네트워크 실패, 타임아웃 모두 여기에 해당합니다.
type UpstreamError struct {
	Model  string // 호출한 모델 식별자
	Status int    // HTTP 상태 코드 (네트워크 실패 시 0)
	Body   string // 응답 본문 또는 원인 메시지
	Err    error  // 원본 에러
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("model[%s] upstream call failed: %d: %s", e.Model, e.Status, e.Body)
	}
	return fmt.Sprintf("model[%s] upstream call failed: %v", e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError는 새 UpstreamError를 생성합니다.
func NewUpstreamError(model string, status int, body string, err error) *UpstreamError {
	return &UpstreamError{
		Model:  model,
		Status: status,
		Body:   body,
		Err:    err,
	}
}

// IsUpstreamError는 에러가 UpstreamError인지 확인합니다.
func IsUpstreamError(err error) bool {
	var upstreamErr *UpstreamError
	return errors.As(err, &upstreamErr)
}
