package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/smartgrant-oss/app/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func buildProjectCommands(logger *zap.Logger) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "프로젝트 관리 명령어",
		Long:  "평가 대상 프로젝트의 생성과 조회 기능을 제공합니다.",
	}

	// project create
	var source, orgName string
	projectCreateCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "새로운 프로젝트 생성",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectCreate(logger, args[0], source, orgName)
		},
	}
	projectCreateCmd.Flags().StringVar(&source, "source", "", "项目来源方 (甲方)")
	projectCreateCmd.Flags().StringVar(&orgName, "org", "", "项目承担单位")

	// project list
	projectListCmd := &cobra.Command{
		Use:   "list",
		Short: "프로젝트 목록 조회",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectList(logger)
		},
	}

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	return projectCmd
}

func runProjectCreate(logger *zap.Logger, name, source, orgName string) error {
	repo, cleanup, err := initStorage(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	project := storage.Project{
		ProjectID: uuid.NewString(),
		Name:      name,
		Source:    source,
		OrgName:   orgName,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := repo.CreateProject(ctx, &project); err != nil {
		return err
	}

	fmt.Printf("프로젝트가 생성되었습니다: %s (%s)\n", project.Name, project.ProjectID)
	return nil
}

func runProjectList(logger *zap.Logger) error {
	repo, cleanup, err := initStorage(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	projects, err := repo.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("등록된 프로젝트가 없습니다.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT-ID\tNAME\tSOURCE\tORG\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ProjectID, p.Name, p.Source, p.OrgName, p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
