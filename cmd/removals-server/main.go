package main

import (
	"fmt"
	"net/http"
	"os"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
	"bitbucket.org/mmdatafocus/sonar_removals/models/reports"
	"bitbucket.org/mmdatafocus/sonar_removals/sonar"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Small download wrapper around the export pipeline: operators fetch the
// current removal list from a browser instead of running the batch tool.
func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadSonarConfig()
	if err != nil {
		config.LogError(logger, "removals-server", "main", "invalid configuration", nil, err)
		os.Exit(1)
	}
	if config.RedisConfigured() {
		if err := config.ConnectRedis(3); err != nil {
			config.LogError(logger, "removals-server", "main", "redis configured but unreachable", nil, err)
			os.Exit(1)
		}
	}

	client := sonar.NewClient(cfg, logger)

	latest := func(c *gin.Context) (*reports.PipelineResult, bool) {
		if cached, ok, err := reports.CachedRemovalList(); err == nil && ok {
			return cached, true
		}
		result, err := reports.GenerateRemovalList(c.Request.Context(), client, cfg.RecordsPerPage)
		if err != nil {
			config.LogError(logger, "removals-server", "latest", "pipeline failed", nil, err)
			c.String(http.StatusBadGateway, "report unavailable: %v", err)
			return nil, false
		}
		if err := reports.CacheRemovalList(result); err != nil {
			config.LogError(logger, "removals-server", "latest", "failed to cache report", nil, err)
		}
		return result, true
	}

	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.GET("/reports/removals.csv", func(c *gin.Context) {
		result, ok := latest(c)
		if !ok {
			return
		}
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=removal_list_filtered.csv")
		if err := reports.WriteRemovalListCSV(c.Writer, result.Rows); err != nil {
			config.LogError(logger, "removals-server", "removals.csv", "failed to stream csv", nil, err)
		}
	})

	r.GET("/reports/removals.xlsx", func(c *gin.Context) {
		result, ok := latest(c)
		if !ok {
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=removal_list_filtered.xlsx")
		if err := reports.WriteRemovalListExcel(c.Writer, result.Rows); err != nil {
			config.LogError(logger, "removals-server", "removals.xlsx", "failed to stream workbook", nil, err)
		}
	})

	r.GET("/reports/removals/stats", func(c *gin.Context) {
		result, ok := latest(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"generatedAt": result.GeneratedAt,
			"stats":       result.Stats,
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(fmt.Sprintf(":%s", port)); err != nil {
		config.LogError(logger, "removals-server", "main", "server stopped", nil, err)
		os.Exit(1)
	}
}
