package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shuleranks/necta-cli/internal/fetcher"
	"github.com/shuleranks/necta-cli/internal/model"
	"github.com/shuleranks/necta-cli/internal/scraper"
)

var scrapeFlags struct {
	exam         string
	year         int
	maxSchools   int
	ignoreSSL    bool
	verbose      bool
	rankSubjects bool
	xlsxReport   bool
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape one exam sitting and write ranked reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		exam, err := model.ParseExamType(scrapeFlags.exam)
		if err != nil {
			return err
		}
		if scrapeFlags.year <= 0 {
			return eris.Errorf("invalid year %d", scrapeFlags.year)
		}

		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		client := fetcher.New(fetcher.Options{
			Timeout:            time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
			MaxRetries:         cfg.Scrape.MaxRetries,
			RequestsPerSec:     cfg.Scrape.RequestsPerSec,
			InsecureSkipVerify: scrapeFlags.ignoreSSL,
		})

		crawler := scraper.New(client, repo, scraper.Options{
			BaseURL:     cfg.Scrape.BaseURL,
			Exam:        exam,
			Year:        scrapeFlags.year,
			MaxSchools:  scrapeFlags.maxSchools,
			Concurrency: cfg.Scrape.Concurrency,
			Verbose:     scrapeFlags.verbose,
		})

		run := model.ScrapeRun{
			ID:        uuid.NewString(),
			Exam:      exam,
			Year:      scrapeFlags.year,
			StartedAt: time.Now().UTC(),
		}

		summary, err := crawler.Run(ctx)
		if err != nil {
			return err
		}

		finished := time.Now().UTC()
		run.Processed = summary.Processed
		run.Skipped = summary.Skipped
		run.FinishedAt = &finished
		if err := repo.RecordRun(ctx, run); err != nil {
			zap.L().Warn("failed to record scrape run", zap.Error(err))
		}

		if len(summary.Results) == 0 {
			zap.L().Warn("no schools were successfully processed")
			return nil
		}

		scraper.Rank(summary.Results, exam.Family())
		reportPath := scraper.SchoolReportPath(cfg.Scrape.ReportDir, exam, scrapeFlags.year)
		if err := scraper.WriteSchoolReport(reportPath, exam, scrapeFlags.year, summary.Results); err != nil {
			return err
		}
		zap.L().Info("school rankings saved", zap.String("path", reportPath))

		if scrapeFlags.xlsxReport {
			xlsxPath := reportPath[:len(reportPath)-len(".txt")] + ".xlsx"
			if err := scraper.WriteXLSXReport(xlsxPath, exam, scrapeFlags.year, summary.Results); err != nil {
				return err
			}
			zap.L().Info("xlsx rankings saved", zap.String("path", xlsxPath))
		}

		if scrapeFlags.rankSubjects {
			perfs, err := repo.SubjectPerformances(ctx, exam, scrapeFlags.year)
			if err != nil {
				return err
			}
			aggs := scraper.RankSubjects(perfs, exam.Family())
			subjectPath := scraper.SubjectReportPath(cfg.Scrape.ReportDir, exam, scrapeFlags.year)
			if err := scraper.WriteSubjectReport(subjectPath, exam, scrapeFlags.year, aggs); err != nil {
				return err
			}
			zap.L().Info("subject rankings saved", zap.String("path", subjectPath))
		}

		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeFlags.exam, "exam", "", "exam type: PSLE, CSEE or ACSEE")
	scrapeCmd.Flags().IntVar(&scrapeFlags.year, "year", 0, "exam year (e.g. 2025)")
	scrapeCmd.Flags().IntVar(&scrapeFlags.maxSchools, "max-schools", 0, "maximum number of schools to scrape (0 for all)")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.ignoreSSL, "ignore-ssl", false, "ignore TLS certificate verification")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.verbose, "verbose", false, "log detailed subject data for each school")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.rankSubjects, "rank-subjects", false, "rank subjects by average score after scraping")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.xlsxReport, "xlsx", false, "also write the school ranking as a spreadsheet")
	_ = scrapeCmd.MarkFlagRequired("exam")
	_ = scrapeCmd.MarkFlagRequired("year")
	rootCmd.AddCommand(scrapeCmd)
}
