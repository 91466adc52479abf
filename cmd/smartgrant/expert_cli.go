package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/smartgrant-oss/app/internal/expert"
	"github.com/smartgrant-oss/app/internal/review"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func buildExpertCommands(logger *zap.Logger) *cobra.Command {
	expertCmd := &cobra.Command{
		Use:   "expert",
		Short: "전문가 추천 명령어",
		Long:  "프로젝트 자료 기반 평가 전문가 추천 기능을 제공합니다.",
	}

	var materialPaths []string
	var rawOutput bool
	expertRecommendCmd := &cobra.Command{
		Use:   "recommend <project-id>",
		Short: "전문가 추천 실행",
		Long:  "프로젝트 자료를 분석해 평가 전문가 추천 표를 생성합니다.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpertRecommend(logger, args[0], materialPaths, rawOutput)
		},
	}
	expertRecommendCmd.Flags().StringArrayVarP(&materialPaths, "material", "m", nil, "申报材料 파일 경로 (반복 지정 가능)")
	expertRecommendCmd.Flags().BoolVar(&rawOutput, "raw", false, "파싱 없이 마크다운 원문 출력")

	expertCmd.AddCommand(expertRecommendCmd)
	return expertCmd
}

func runExpertRecommend(logger *zap.Logger, projectID string, materialPaths []string, rawOutput bool) error {
	if len(materialPaths) == 0 {
		return fmt.Errorf("at least one --material file is required")
	}

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

	search := expert.NewTavilyClient(cfg.Tavily.APIKey,
		expert.WithTavilyBaseURL(cfg.Tavily.BaseURL),
		expert.WithTavilyMaxResults(cfg.Tavily.MaxResults),
		expert.WithTavilyLogger(logger.Named("tavily")),
	)

	model := review.NewRegistry(cfg.OpenRouter.Models).ExpertHunter().Model
	recommender := expert.NewRecommender(logger.Named("expert"), completer, search, repo, model)

	content, err := recommender.Recommend(context.Background(), projectID, materials)
	if err != nil {
		return err
	}

	if rawOutput {
		fmt.Println(content)
		return nil
	}

	experts := expert.ParseExpertTable(content)
	if len(experts) == 0 {
		// 표 파싱 실패: 원문을 그대로 출력
		fmt.Println(content)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tNAME\tORG\tTITLE\tFIELD")
	for _, e := range experts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Tier, e.Name, e.Org, e.Title, e.Field)
	}
	return w.Flush()
}
