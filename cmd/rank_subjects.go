package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shuleranks/necta-cli/internal/model"
	"github.com/shuleranks/necta-cli/internal/scraper"
)

var rankSubjectsFlags struct {
	exam string
	year int
}

var rankSubjectsCmd = &cobra.Command{
	Use:   "rank-subjects",
	Short: "Rank subjects nationally from previously scraped data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		exam, err := model.ParseExamType(rankSubjectsFlags.exam)
		if err != nil {
			return err
		}
		if rankSubjectsFlags.year <= 0 {
			return eris.Errorf("invalid year %d", rankSubjectsFlags.year)
		}

		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		perfs, err := repo.SubjectPerformances(ctx, exam, rankSubjectsFlags.year)
		if err != nil {
			return err
		}
		if len(perfs) == 0 {
			return eris.Errorf("no subject data stored for %s %d", exam, rankSubjectsFlags.year)
		}

		aggs := scraper.RankSubjects(perfs, exam.Family())
		path := scraper.SubjectReportPath(cfg.Scrape.ReportDir, exam, rankSubjectsFlags.year)
		if err := scraper.WriteSubjectReport(path, exam, rankSubjectsFlags.year, aggs); err != nil {
			return err
		}
		zap.L().Info("subject rankings saved",
			zap.String("path", path),
			zap.Int("subjects", len(aggs)),
		)
		return nil
	},
}

func init() {
	rankSubjectsCmd.Flags().StringVar(&rankSubjectsFlags.exam, "exam", "", "exam type: PSLE, CSEE or ACSEE")
	rankSubjectsCmd.Flags().IntVar(&rankSubjectsFlags.year, "year", 0, "exam year")
	_ = rankSubjectsCmd.MarkFlagRequired("exam")
	_ = rankSubjectsCmd.MarkFlagRequired("year")
	rootCmd.AddCommand(rankSubjectsCmd)
}
