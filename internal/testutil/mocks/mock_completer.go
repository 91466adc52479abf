package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/smartgrant-oss/app/internal/gateway"
)

// ScriptedCompleter는 테스트용 gateway.Completer 구현입니다.
// 프로파일별로 응답과 에러를 스크립트할 수 있습니다.
type ScriptedCompleter struct {
	mu sync.Mutex

	// Responses는 프로파일별 응답을 정의합니다.
	Responses map[string]string

	// Errors는 프로파일별 에러를 정의합니다.
	Errors map[string]error

	// Calls는 Complete 호출 기록입니다.
	Calls []gateway.Request

	// DefaultResponse는 Responses에 없는 경우 사용할 기본 응답입니다.
	DefaultResponse string
}

// NewScriptedCompleter는 새로운 ScriptedCompleter를 생성합니다.
func NewScriptedCompleter() *ScriptedCompleter {
	return &ScriptedCompleter{
		Responses:       make(map[string]string),
		Errors:          make(map[string]error),
		Calls:           make([]gateway.Request, 0),
		DefaultResponse: "评审意见（测试）",
	}
}

// ensure ScriptedCompleter implements Completer
var _ gateway.Completer = (*ScriptedCompleter)(nil)

// Complete implements gateway.Completer.
func (s *ScriptedCompleter) Complete(ctx context.Context, req gateway.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 호출 기록
	s.Calls = append(s.Calls, req)

	if err, ok := s.Errors[req.Profile]; ok {
		return "", err
	}
	if resp, ok := s.Responses[req.Profile]; ok {
		return resp, nil
	}
	return s.DefaultResponse, nil
}

// SetResponse는 특정 프로파일에 대한 응답을 설정합니다.
func (s *ScriptedCompleter) SetResponse(profile, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses[profile] = response
}

// SetError는 특정 프로파일에 대한 에러를 설정합니다.
func (s *ScriptedCompleter) SetError(profile string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors[profile] = err
}

// SetErrorMessage는 특정 프로파일에 대한 에러 메시지를 설정합니다.
func (s *ScriptedCompleter) SetErrorMessage(profile, message string) {
	s.SetError(profile, fmt.Errorf("%s", message))
}

// CallCount는 Complete 호출 횟수를 반환합니다.
func (s *ScriptedCompleter) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// CallsFor는 특정 프로파일로 기록된 호출 목록을 반환합니다.
func (s *ScriptedCompleter) CallsFor(profile string) []gateway.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []gateway.Request
	for _, call := range s.Calls {
		if call.Profile == profile {
			out = append(out, call)
		}
	}
	return out
}

// LastCall은 마지막 Complete 호출을 반환합니다.
func (s *ScriptedCompleter) LastCall() *gateway.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Calls) == 0 {
		return nil
	}
	last := s.Calls[len(s.Calls)-1]
	return &last
}

// Reset은 모든 호출 기록을 초기화합니다.
func (s *ScriptedCompleter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = make([]gateway.Request, 0)
}
