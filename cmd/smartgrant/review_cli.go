package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/smartgrant-oss/app/internal/review"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func buildReviewCommands(logger *zap.Logger) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "평가 사이클 명령어",
		Long:  "다중 에이전트 평가 사이클 실행과 결과 조회 기능을 제공합니다.",
	}

	// review run
	var materialPaths, guidelinePaths []string
	var templateID string
	var stream bool
	reviewRunCmd := &cobra.Command{
		Use:   "run <project-id>",
		Short: "평가 사이클 실행",
		Long:  "지정한 프로젝트에 대해 평가 사이클 1회를 실행합니다. --stream으로 진행 상황을 실시간 출력할 수 있습니다.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReviewRun(logger, args[0], materialPaths, guidelinePaths, templateID, stream)
		},
	}
	reviewRunCmd.Flags().StringArrayVarP(&materialPaths, "material", "m", nil, "申报材料 파일 경로 (반복 지정 가능)")
	reviewRunCmd.Flags().StringArrayVarP(&guidelinePaths, "guideline", "g", nil, "申报指南 파일 경로 (반복 지정 가능)")
	reviewRunCmd.Flags().StringVarP(&templateID, "template", "t", "", "평가 템플릿 식별자")
	reviewRunCmd.Flags().BoolVar(&stream, "stream", false, "평가자를 순차 실행하며 진행 상황 출력")

	// review status
	reviewStatusCmd := &cobra.Command{
		Use:   "status <project-id>",
		Short: "평가 상태 조회",
		Long:  "프로젝트의 역할별 평가 상태를 조회합니다.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReviewStatus(logger, args[0])
		},
	}

	reviewCmd.AddCommand(reviewRunCmd)
	reviewCmd.AddCommand(reviewStatusCmd)
	return reviewCmd
}

func runReviewRun(logger *zap.Logger, projectID string, materialPaths, guidelinePaths []string, templateID string, stream bool) error {
	completer, cfg, err := newCompleter(logger)
	if err != nil {
		return err
	}

	repo, cleanup, err := initStorage(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	materials, err := loadDocuments(materialPaths)
	if err != nil {
		return err
	}
	guidelines, err := loadDocuments(guidelinePaths)
	if err != nil {
		return err
	}

	orch := review.NewOrchestrator(logger.Named("review"), completer, repo, repo, review.NewRegistry(cfg.OpenRouter.Models))
	req := review.CycleRequest{
		ProjectID:  projectID,
		Materials:  materials,
		Guidelines: guidelines,
		TemplateID: templateID,
	}

	ctx := context.Background()

	if stream {
		orch.RunCycleStream(ctx, req, func(ev review.Event) {
			switch ev.Type {
			case review.EventAgentComplete, review.EventSynthesizerComplete:
				fmt.Printf("[%s] %s\n", ev.Type, ev.Message)
			case review.EventAgentError, review.EventSynthesizerError, review.EventError:
				fmt.Printf("[%s] %s\n", ev.Type, ev.Error)
			default:
				fmt.Printf("[%s] %s\n", ev.Type, ev.Message)
			}
		})
		return nil
	}

	result := orch.RunCycle(ctx, req)
	for _, r := range result.Reviews {
		fmt.Printf("=== %s (%s) ===\n", r.Name, r.Status)
		if r.Error != "" {
			fmt.Println(r.Error)
		}
	}
	fmt.Println("=== 综合评审报告 ===")
	if result.Synthesis.Error != "" {
		return fmt.Errorf("synthesis failed: %s", result.Synthesis.Error)
	}
	fmt.Println(result.Synthesis.Content)
	return nil
}

func runReviewStatus(logger *zap.Logger, projectID string) error {
	repo, cleanup, err := initStorage(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := repo.ListReviewResults(ctx, projectID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("평가 기록이 없습니다.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tSTATUS\tUPDATED\tERROR")
	for agentType, result := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			agentType,
			result.Status,
			result.UpdatedAt.Format(time.RFC3339),
			result.Error,
		)
	}
	return w.Flush()
}

// loadDocuments는 파일 경로 목록을 평가 문서 목록으로 읽어들입니다.
func loadDocuments(paths []string) ([]review.Document, error) {
	var docs []review.Document
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, review.Document{
			ID:         filepath.Base(path),
			Name:       filepath.Base(path),
			Content:    string(content),
			SourceKind: "file",
		})
	}
	return docs, nil
}
