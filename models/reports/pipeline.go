package reports

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/sonar_removals/models"
)

// PipelineResult is one complete reconciled report plus its audit stats.
type PipelineResult struct {
	Rows        []RemovalRow   `json:"rows"`
	Stats       ReconcileStats `json:"stats"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// GenerateRemovalList runs the whole pipeline: fetch the two base tables and
// the three candidate lists, flatten, reconcile. The five fetches are
// independent and read-only; order does not matter. Any fetch failure aborts
// before anything is written.
func GenerateRemovalList(ctx context.Context, exec models.QueryExecutor, recordsPerPage int) (*PipelineResult, error) {
	inventory, err := models.FetchInventoryRecords(ctx, exec, recordsPerPage)
	if err != nil {
		return nil, err
	}
	accounts, err := models.FetchAccountRecords(ctx, exec, recordsPerPage)
	if err != nil {
		return nil, err
	}
	inactive, err := models.BuildInactiveAccountCandidates(ctx, exec, recordsPerPage)
	if err != nil {
		return nil, err
	}
	serviceable, err := models.BuildServiceableAddressCandidates(ctx, exec, recordsPerPage)
	if err != nil {
		return nil, err
	}
	uninstall, err := models.BuildUninstallJobCandidates(ctx, exec, recordsPerPage)
	if err != nil {
		return nil, err
	}

	rows, stats, err := BuildRemovalList(inventory, accounts, inactive, serviceable, uninstall)
	if err != nil {
		return nil, err
	}
	stats.InventoryRows = len(inventory)
	stats.AccountRows = len(accounts)
	return &PipelineResult{
		Rows:        rows,
		Stats:       stats,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
