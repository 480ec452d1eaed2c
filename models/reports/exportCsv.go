package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bitbucket.org/mmdatafocus/sonar_removals/utils"
)

// RemovalListHeader is the exact output column order; downstream consumers
// key on these names.
var RemovalListHeader = []string{
	"InventoryItem_id",
	"InventoryModel",
	"MAC",
	"IP",
	"Address_id",
	"Address_line1",
	"Address_line2",
	"Reason",
	"Account_id",
	"Account_name",
	"Account_status",
	"Account_email",
	"Account_phone",
	"end_date",
}

func removalRowValues(row RemovalRow) []string {
	return []string{
		row.InventoryItemID,
		utils.DereferencePtr(row.InventoryModel),
		utils.DereferencePtr(row.MAC),
		utils.DereferencePtr(row.IP),
		utils.DereferencePtr(row.AddressID),
		utils.DereferencePtr(row.AddressLine1),
		utils.DereferencePtr(row.AddressLine2),
		row.Reason,
		utils.DereferencePtr(row.AccountID),
		utils.DereferencePtr(row.AccountName),
		utils.DereferencePtr(row.AccountStatus),
		utils.DereferencePtr(row.AccountEmail),
		utils.DereferencePtr(row.AccountPhone),
		utils.DereferencePtr(row.EndDate),
	}
}

// WriteRemovalListCSV streams the report to any writer.
func WriteRemovalListCSV(w io.Writer, rows []RemovalRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RemovalListHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(removalRowValues(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportRemovalListCSV writes the report to path, replacing the previous
// run's file atomically (temp file in the same directory, then rename).
func ExportRemovalListCSV(rows []RemovalRow, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".removal_list_*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteRemovalListCSV(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
