package review

import (
	"context"

	"go.uber.org/zap"
)

// ResultStore는 (project, role)별 상태/내용 레코드를 보관하는 외부 협력자입니다.
// *storage.Repository가 이 인터페이스를 만족합니다.
//
// 오케스트레이터 입장에서 이 저장소는 write-mostly 사이드 채널입니다:
// 쓰기 실패는 평가 진행을 절대 중단시키지 않습니다 (로그 후 무시).
type ResultStore interface {
	UpsertReviewResult(ctx context.Context, projectID, agentType, status, content, errMsg string) error
	ResetReviewResults(ctx context.Context, projectID string, agentTypes ...string) error
	TouchProject(ctx context.Context, projectID string) error
}

// tryPersist는 저장소 쓰기를 best-effort로 수행합니다.
// 실패는 로그로만 남기고 절대 전파하지 않습니다. 평가 품질이 저장소 가용성에
// 의존해서는 안 된다는 계약의 단일 구현 지점입니다.
func tryPersist(logger *zap.Logger, op string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("Result store write failed (ignored)",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// persistStatus는 역할 하나의 상태 전이를 best-effort로 기록합니다.
func persistStatus(ctx context.Context, logger *zap.Logger, store ResultStore, projectID string, role AgentRole, status Status, content, errMsg string) {
	tryPersist(logger, "upsert "+string(role), func() error {
		return store.UpsertReviewResult(ctx, projectID, string(role), string(status), content, errMsg)
	})
}
