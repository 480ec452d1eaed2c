package models

import (
	"context"

	"bitbucket.org/mmdatafocus/sonar_removals/sonar"
)

// FetchInventoryRecords pulls the Address-typed inventory page and flattens it.
func FetchInventoryRecords(ctx context.Context, exec QueryExecutor, recordsPerPage int) ([]InventoryRecord, error) {
	data, err := exec.Execute(ctx, sonar.QueryGetInventoryItems, sonar.InventoryItemsVariables(recordsPerPage))
	if err != nil {
		return nil, err
	}
	return FlattenInventoryItems(data)
}

// FetchAccountRecords pulls the accounts page and flattens it.
func FetchAccountRecords(ctx context.Context, exec QueryExecutor, recordsPerPage int) ([]AccountRecord, error) {
	data, err := exec.Execute(ctx, sonar.QueryGetAccounts, sonar.AccountsVariables(recordsPerPage))
	if err != nil {
		return nil, err
	}
	return FlattenAccounts(data)
}
