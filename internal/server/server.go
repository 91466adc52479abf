// Package server는 평가 오케스트레이션을 노출하는 HTTP API 서버를 구현합니다.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/smartgrant-oss/app/internal/expert"
	"github.com/smartgrant-oss/app/internal/review"
	"github.com/smartgrant-oss/app/internal/storage"
	"go.uber.org/zap"
)

// Server는 HTTP API 서버의 상태를 관리하는 중앙 구조체입니다.
type Server struct {
	logger      *zap.Logger
	addr        string
	mux         *http.ServeMux
	httpServer  *http.Server
	orch        *review.Orchestrator
	recommender *expert.Recommender
	repo        *storage.Repository
}

// NewServer는 새 API 서버를 생성하고 라우트를 구성합니다.
// repo는 nil일 수 있으며, 그 경우 프로젝트/채팅 영속화가 비활성화됩니다.
func NewServer(logger *zap.Logger, addr string, orch *review.Orchestrator, recommender *expert.Recommender, repo *storage.Repository) *Server {
	s := &Server{
		logger:      logger,
		addr:        addr,
		mux:         http.NewServeMux(),
		orch:        orch,
		recommender: recommender,
		repo:        repo,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/review", s.handleReview)
	s.mux.HandleFunc("POST /api/review/stream", s.handleReviewStream)
	s.mux.HandleFunc("POST /api/expert", s.handleExpert)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/extract-metadata", s.handleExtractMetadata)
	s.mux.HandleFunc("GET /api/projects", s.handleListProjects)
	s.mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	s.mux.HandleFunc("GET /api/projects/{projectID}/results", s.handleProjectResults)
	s.mux.HandleFunc("GET /api/projects/{projectID}/materials", s.handleProjectMaterials)
	s.mux.HandleFunc("GET /api/templates", s.handleListTemplates)
}

// Handler는 구성된 라우트 핸들러를 반환합니다. 테스트에서 httptest로 직접 구동할 수 있습니다.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start는 HTTP 서버를 시작합니다. ctx 취소 또는 Stop 호출까지 블록합니다.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
		// 스트리밍 응답이 있으므로 WriteTimeout은 두지 않음
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting API server", zap.String("addr", s.addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop은 진행 중인 요청을 기다리며 서버를 종료합니다.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}
