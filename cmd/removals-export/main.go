package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
	"bitbucket.org/mmdatafocus/sonar_removals/models"
	"bitbucket.org/mmdatafocus/sonar_removals/models/reports"
	"bitbucket.org/mmdatafocus/sonar_removals/sonar"
	"bitbucket.org/mmdatafocus/sonar_removals/utils"
	"github.com/google/uuid"
)

func main() {
	outPath := flag.String("out", "removal_list_filtered.csv", "Output CSV path (previous file is replaced)")
	xlsxPath := flag.String("xlsx", "", "Optional: also write the report as a workbook to this path")
	uploadGCS := flag.Bool("upload-gcs", false, "Upload the finished report to the GCS_BUCKET bucket")
	skipLock := flag.Bool("skip-lock", false, "Skip the redis run lock (single-operator runs)")
	flag.Parse()

	logger := config.GetLogger()
	ctx := context.Background()

	cfg, err := config.LoadSonarConfig()
	if err != nil {
		config.LogError(logger, "removals-export", "main", "invalid configuration", nil, err)
		os.Exit(1)
	}

	if config.RedisConfigured() {
		if err := config.ConnectRedis(3); err != nil {
			config.LogError(logger, "removals-export", "main", "redis configured but unreachable", nil, err)
			os.Exit(1)
		}
	}
	if config.DatabaseConfigured() {
		if err := config.ConnectDatabase(3); err != nil {
			config.LogError(logger, "removals-export", "main", "database configured but unreachable", nil, err)
			os.Exit(1)
		}
		if err := models.MigrateTable(); err != nil {
			config.LogError(logger, "removals-export", "main", "schema migration failed", nil, err)
			os.Exit(1)
		}
	}

	if !*skipLock {
		release, err := utils.RunLock(ctx, "removal-list-export", "removals-export", "main")
		if err != nil {
			os.Exit(1)
		}
		defer release()
	}

	run := &models.ExportRun{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	client := sonar.NewClient(cfg, logger)
	result, err := reports.GenerateRemovalList(ctx, client, cfg.RecordsPerPage)
	if err != nil {
		config.LogError(logger, "removals-export", "main", "pipeline failed; no report written", nil, err)
		run.FinishedAt = time.Now().UTC()
		run.Status = models.ExportRunStatusFailed
		run.ErrorMessage = err.Error()
		if recErr := models.RecordExportRun(run); recErr != nil {
			config.LogError(logger, "removals-export", "main", "failed to record export run", run.RunID, recErr)
		}
		os.Exit(1)
	}

	if err := reports.ExportRemovalListCSV(result.Rows, *outPath); err != nil {
		config.LogError(logger, "removals-export", "main", "failed to write csv", *outPath, err)
		os.Exit(1)
	}
	if *xlsxPath != "" {
		if err := reports.ExportRemovalListExcel(result.Rows, *xlsxPath); err != nil {
			config.LogError(logger, "removals-export", "main", "failed to write workbook", *xlsxPath, err)
			os.Exit(1)
		}
	}

	if err := reports.CacheRemovalList(result); err != nil {
		config.LogError(logger, "removals-export", "main", "failed to cache report", nil, err)
	}

	if *uploadGCS {
		f, err := os.Open(*outPath)
		if err != nil {
			config.LogError(logger, "removals-export", "main", "failed to reopen csv for upload", *outPath, err)
			os.Exit(1)
		}
		objectName := fmt.Sprintf("removals/%s_%s", result.GeneratedAt.Format("20060102T150405Z"), filepath.Base(*outPath))
		err = utils.UploadReportToGCS(ctx, objectName, f)
		f.Close()
		if err != nil {
			config.LogError(logger, "removals-export", "main", "gcs upload failed", objectName, err)
			os.Exit(1)
		}
		config.LogInfo(logger, "removals-export", "main", "report uploaded", objectName)
	}

	run.FinishedAt = time.Now().UTC()
	run.Status = models.ExportRunStatusCompleted
	run.InventoryRows = result.Stats.InventoryRows
	run.AccountRows = result.Stats.AccountRows
	run.InactiveCandidates = result.Stats.InactiveApplied + result.Stats.InactiveUnmapped
	run.ServiceableCandidates = result.Stats.ServiceableReasonsAdded
	run.UninstallCandidates = result.Stats.UninstallApplied + result.Stats.UninstallUnmapped + result.Stats.UninstallNonAccount
	run.SkippedCandidates = result.Stats.SkippedTotal()
	run.OutputRows = result.Stats.OutputRows
	run.OutputPath = *outPath
	if err := models.RecordExportRun(run); err != nil {
		config.LogError(logger, "removals-export", "main", "failed to record export run", run.RunID, err)
	}

	config.LogInfo(logger, "removals-export", "main",
		fmt.Sprintf("saved %q with %d rows (non-empty reasons)", *outPath, result.Stats.OutputRows),
		result.Stats)
}
