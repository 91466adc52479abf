package expert

import (
	"errors"
	"fmt"
)

// ErrNoMaterials는 추천에 사용할 프로젝트 자료가 없을 때 반환됩니다.
var ErrNoMaterials = errors.New("no project materials provided")

// SearchError는 전문가 검색 호출 실패를 래핑합니다.
type SearchError struct {
	Query  string // 실패한 검색 쿼리
	Status int    // HTTP 상태 코드 (네트워크 실패 시 0)
	Err    error  // 원본 에러
}

func (e *SearchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("search[%s] failed: %d: %v", e.Query, e.Status, e.Err)
	}
	return fmt.Sprintf("search[%s] failed: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// IsSearchError는 에러가 SearchError인지 확인합니다.
func IsSearchError(err error) bool {
	var searchErr *SearchError
	return errors.As(err, &searchErr)
}
