package reports

import (
	"fmt"
	"sort"
	"strings"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
	"bitbucket.org/mmdatafocus/sonar_removals/models"
	"bitbucket.org/mmdatafocus/sonar_removals/utils"
)

// ReasonDelimiter joins the sorted, deduplicated reasons of one inventory item.
const ReasonDelimiter = " | "

// RemovalRow is one line of the final report: one inventory item with at
// least one removal reason.
type RemovalRow struct {
	InventoryItemID string  `json:"inventoryItemId"`
	InventoryModel  *string `json:"inventoryModel"`
	MAC             *string `json:"mac"`
	IP              *string `json:"ip"`
	AddressID       *string `json:"addressId"`
	AddressLine1    *string `json:"addressLine1"`
	AddressLine2    *string `json:"addressLine2"`
	Reason          string  `json:"reason"`
	AccountID       *string `json:"accountId"`
	AccountName     *string `json:"accountName"`
	AccountStatus   *string `json:"accountStatus"`
	AccountEmail    *string `json:"accountEmail"`
	AccountPhone    *string `json:"accountPhone"`
	EndDate         *string `json:"endDate"`
}

// ReconcileStats reports how the candidate sources mapped onto inventory.
// Skipped counts are the audit trail for the deliberate business-policy gaps:
// nothing is dropped silently.
type ReconcileStats struct {
	InventoryRows            int
	AccountRows              int
	ServiceableReasonsAdded  int
	InactiveApplied          int
	InactiveUnmapped         int
	UninstallApplied         int
	UninstallUnmapped        int
	UninstallNonAccount      int
	RowsWithoutInventoryBase int
	OutputRows               int
}

// SkippedTotal is everything excluded from the report but logged.
func (s ReconcileStats) SkippedTotal() int {
	return s.InactiveUnmapped + s.UninstallUnmapped + s.UninstallNonAccount
}

// BuildRemovalList is the reconciliation engine: it correlates the three
// candidate sources against the flattened inventory table, merges reasons per
// inventory item with set semantics, and assembles exactly one row per item.
//
// All keys are assumed already normalized to canonical strings by the
// flatteners/parsers (FlexID at the ingestion boundary); empty string is the
// no-value marker throughout.
func BuildRemovalList(
	inventory []models.InventoryRecord,
	accounts []models.AccountRecord,
	inactive []models.InactiveAccountCandidate,
	serviceable []models.ServiceableAddressCandidate,
	uninstall []models.UninstallJobCandidate,
) ([]RemovalRow, ReconcileStats, error) {
	logger := config.GetLogger()
	stats := ReconcileStats{
		InventoryRows: len(inventory),
		AccountRows:   len(accounts),
	}

	// A record without its primary key poisons every join below; refuse to
	// run rather than produce a report with an unknown subset of reasons.
	inventoryByID := make(map[string]*models.InventoryRecord, len(inventory))
	accountToInventoryIDs := make(map[string][]string)
	for i := range inventory {
		rec := &inventory[i]
		id := models.NormalizeKey(rec.InventoryItemID)
		if id == "" {
			return nil, stats, fmt.Errorf("inventory table row %d has no inventory item id", i)
		}
		if _, seen := inventoryByID[id]; !seen {
			inventoryByID[id] = rec
		}
		if acct := models.NormalizeKey(rec.AccountID); acct != "" {
			accountToInventoryIDs[acct] = append(accountToInventoryIDs[acct], id)
		}
	}

	accountsByID := make(map[string]*models.AccountRecord, len(accounts))
	for i := range accounts {
		rec := &accounts[i]
		id := models.NormalizeKey(rec.AccountID)
		if id == "" {
			return nil, stats, fmt.Errorf("accounts table row %d has no account id", i)
		}
		if _, seen := accountsByID[id]; !seen {
			accountsByID[id] = rec
		}
	}

	// inventory item id -> reason set
	reasonSets := make(map[string]map[string]struct{})
	addReason := func(inventoryID, reason string) {
		if reasonSets[inventoryID] == nil {
			reasonSets[inventoryID] = make(map[string]struct{})
		}
		reasonSets[inventoryID][reason] = struct{}{}
	}

	for _, candidate := range serviceable {
		for _, id := range candidate.ExpandInventoryIDs() {
			addReason(id, candidate.Reason)
			stats.ServiceableReasonsAdded++
		}
	}

	for _, candidate := range inactive {
		acct := models.NormalizeKey(candidate.AccountID)
		invIDs := accountToInventoryIDs[acct]
		if len(invIDs) == 0 {
			stats.InactiveUnmapped++
			config.LogInfo(logger, "reports", "BuildRemovalList",
				"inactive account has no inventory mapped; skipping",
				map[string]any{"account_id": acct, "account_name": candidate.Name})
			continue
		}
		for _, id := range invIDs {
			addReason(id, candidate.Reason)
		}
		stats.InactiveApplied++
	}

	for _, candidate := range uninstall {
		// Account-level jobs only: other job subjects are out of contract
		// until the policy is extended, and must stay loudly visible.
		if !strings.Contains(strings.ToLower(candidate.EntityType), "account") {
			stats.UninstallNonAccount++
			config.LogWarn(logger, "reports", "BuildRemovalList",
				"uninstall job subject is not an account; excluded",
				map[string]any{"entity_type": candidate.EntityType, "entity_id": candidate.EntityID})
			continue
		}
		acct := models.NormalizeKey(candidate.EntityID)
		invIDs := accountToInventoryIDs[acct]
		if len(invIDs) == 0 {
			stats.UninstallUnmapped++
			config.LogInfo(logger, "reports", "BuildRemovalList",
				"uninstall job account has no inventory mapped; skipping",
				map[string]any{"account_id": acct})
			continue
		}
		for _, id := range invIDs {
			addReason(id, candidate.Reason)
		}
		stats.UninstallApplied++
	}

	rows := make([]RemovalRow, 0, len(reasonSets))
	for inventoryID, reasons := range reasonSets {
		if len(reasons) == 0 {
			continue
		}
		row := assembleRow(inventoryID, reasons, inventoryByID, accountsByID, &stats)
		rows = append(rows, row)
	}

	// Map iteration order is random; fix the output order for stable diffs.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].InventoryItemID < rows[j].InventoryItemID
	})
	stats.OutputRows = len(rows)
	return rows, stats, nil
}

func joinReasons(reasons map[string]struct{}) string {
	sorted := make([]string, 0, len(reasons))
	for r := range reasons {
		sorted = append(sorted, r)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ReasonDelimiter)
}

// assembleRow builds the final row for one inventory id. A candidate can
// reference inventory the base query's own filter excluded; that signal is
// kept as a row with null detail fields rather than dropped.
func assembleRow(
	inventoryID string,
	reasons map[string]struct{},
	inventoryByID map[string]*models.InventoryRecord,
	accountsByID map[string]*models.AccountRecord,
	stats *ReconcileStats,
) RemovalRow {
	logger := config.GetLogger()
	row := RemovalRow{
		InventoryItemID: inventoryID,
		Reason:          joinReasons(reasons),
	}

	inv, ok := inventoryByID[inventoryID]
	if !ok {
		stats.RowsWithoutInventoryBase++
		config.LogInfo(logger, "reports", "assembleRow",
			"candidate references inventory outside the base query; emitting id and reason only",
			map[string]any{"inventory_item_id": inventoryID})
		return row
	}

	row.InventoryModel = inv.ModelModelName
	if row.InventoryModel == nil {
		row.InventoryModel = inv.ModelName
	}
	row.MAC = inv.FieldDataValue
	row.IP = inv.IPSubnet
	row.AddressID = utils.NilIfEmpty(inv.AddressID)
	row.AddressLine1 = inv.AddressLine1
	row.AddressLine2 = inv.AddressLine2
	row.AccountID = utils.NilIfEmpty(inv.AccountID)
	row.AccountStatus = utils.NilIfEmpty(inv.AccountStatusID.String())

	acct := accountsByID[models.NormalizeKey(inv.AccountID)]
	if acct != nil {
		row.AccountName = acct.Name
		row.AccountEmail = acct.ContactEmail
		row.AccountPhone = resolvePhone(acct)
		row.EndDate = acct.MostRecentEndDate()

		// The accounts table and the inventory query's inline snapshot can
		// disagree when an address changed hands over time. The accounts
		// table wins; the disagreement is flagged, not fixed.
		if acct.Name != nil && inv.AccountName != nil && *acct.Name != *inv.AccountName {
			config.LogWarn(logger, "reports", "assembleRow",
				"account name differs between accounts table and inventory snapshot; using accounts table",
				map[string]any{
					"inventory_item_id": inventoryID,
					"account_id":        inv.AccountID,
					"accounts_table":    *acct.Name,
					"inventory_inline":  *inv.AccountName,
				})
		}
	}
	// Inline inventory snapshot is the fallback when the accounts table has
	// no matching row (or carried no name).
	if row.AccountName == nil {
		row.AccountName = inv.AccountName
	}
	return row
}

// resolvePhone prefers the API's own formatted number and falls back to
// formatting the raw digits locally.
func resolvePhone(acct *models.AccountRecord) *string {
	if acct.PhoneNumberFormatted != nil && strings.TrimSpace(*acct.PhoneNumberFormatted) != "" {
		return acct.PhoneNumberFormatted
	}
	if acct.PhoneNumber == nil {
		return nil
	}
	formatted, err := utils.FormatPhoneNumber(
		utils.DereferencePtr(acct.PhoneNumber),
		utils.DereferencePtr(acct.PhoneCountry),
	)
	if err != nil {
		return acct.PhoneNumber
	}
	return &formatted
}
