package reports_test

import (
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/sonar_removals/models"
	"bitbucket.org/mmdatafocus/sonar_removals/models/reports"
)

func strPtr(s string) *string { return &s }

func fixtureInventory() []models.InventoryRecord {
	return []models.InventoryRecord{
		{
			InventoryItemID: "inv1",
			AccountID:       "acct1",
			AccountName:     strPtr("Blue River Coop"),
			AccountStatusID: "4",
			ModelModelName:  strPtr("CPE-1000"),
			FieldDataValue:  strPtr("AA:BB:CC:DD:EE:FF"),
			IPSubnet:        strPtr("10.0.0.8"),
			AddressID:       "9001",
			AddressLine1:    strPtr("12 Main St"),
		},
		{InventoryItemID: "inv2", AccountID: "acct1", ModelModelName: strPtr("CPE-1000")},
		{InventoryItemID: "inv3", AccountID: "acct2"},
		{InventoryItemID: "inv4", AccountID: ""},
	}
}

func fixtureAccounts() []models.AccountRecord {
	acct1 := models.AccountRecord{
		AccountID:            "acct1",
		Name:                 strPtr("Blue River Coop"),
		ContactEmail:         strPtr("pat@example.com"),
		PhoneNumberFormatted: strPtr("(555) 123-0000"),
	}
	acct1.AssignmentHistories[0] = &models.AssignmentHistory{EndDate: strPtr("2025-01-01")}
	return []models.AccountRecord{acct1, {AccountID: "acct2"}}
}

func findRow(t *testing.T, rows []reports.RemovalRow, inventoryID string) reports.RemovalRow {
	t.Helper()
	for _, row := range rows {
		if row.InventoryItemID == inventoryID {
			return row
		}
	}
	t.Fatalf("expected a row for inventory item %s, rows: %+v", inventoryID, rows)
	return reports.RemovalRow{}
}

func TestBuildRemovalList_InactiveAccountMapsToItsInventory(t *testing.T) {
	inactive := []models.InactiveAccountCandidate{
		{AccountID: "acct2", Name: "Lapsed LLC", Reason: models.ReasonInactiveAccount},
	}
	rows, stats, err := reports.BuildRemovalList(fixtureInventory(), fixtureAccounts(), inactive, nil, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := findRow(t, rows, "inv3")
	if row.Reason != models.ReasonInactiveAccount {
		t.Errorf("expected reason %q, got %q", models.ReasonInactiveAccount, row.Reason)
	}
	if stats.InactiveApplied != 1 || stats.InactiveUnmapped != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestBuildRemovalList_ServiceableCandidateExpandsCommaJoinedIDs(t *testing.T) {
	serviceable := []models.ServiceableAddressCandidate{
		{AddressID: "9002", InventoryIDs: "inv2,inv3", Reason: models.ReasonNullHistories},
	}
	rows, stats, err := reports.BuildRemovalList(fixtureInventory(), fixtureAccounts(), nil, serviceable, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one row per expanded inventory id, got %d", len(rows))
	}
	for _, id := range []string{"inv2", "inv3"} {
		if row := findRow(t, rows, id); row.Reason != models.ReasonNullHistories {
			t.Errorf("%s: expected reason %q, got %q", id, models.ReasonNullHistories, row.Reason)
		}
	}
	if stats.ServiceableReasonsAdded != 2 {
		t.Errorf("expected 2 serviceable reasons added, got %d", stats.ServiceableReasonsAdded)
	}
}

func TestBuildRemovalList_ReasonsMergeSortedAndDeduplicated(t *testing.T) {
	inactive := []models.InactiveAccountCandidate{
		{AccountID: "acct1", Reason: models.ReasonInactiveAccount},
	}
	serviceable := []models.ServiceableAddressCandidate{
		{AddressID: "9001", InventoryIDs: "inv1", Reason: models.ReasonNullHistories},
		{AddressID: "9009", InventoryIDs: "inv1", Reason: models.ReasonNullHistories},
	}
	uninstall := []models.UninstallJobCandidate{
		{EntityType: "Account", EntityID: "acct1", Reason: models.ReasonUninstallJob},
		{EntityType: "Account", EntityID: "acct1", Reason: models.ReasonUninstallJob},
	}
	rows, _, err := reports.BuildRemovalList(fixtureInventory(), fixtureAccounts(), inactive, serviceable, uninstall)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	row := findRow(t, rows, "inv1")
	parts := strings.Split(row.Reason, reports.ReasonDelimiter)
	seen := map[string]bool{}
	for _, p := range parts {
		if seen[p] {
			t.Fatalf("reason %q appears more than once in %q", p, row.Reason)
		}
		seen[p] = true
	}
	for i := 1; i < len(parts); i++ {
		if parts[i-1] >= parts[i] {
			t.Fatalf("reasons not sorted: %q", row.Reason)
		}
	}
	want := models.ReasonInactiveAccount + reports.ReasonDelimiter +
		models.ReasonNullHistories + reports.ReasonDelimiter +
		models.ReasonUninstallJob
	if row.Reason != want {
		t.Errorf("expected %q, got %q", want, row.Reason)
	}
}

func TestBuildRemovalList_OneRowPerInventoryItem(t *testing.T) {
	serviceable := []models.ServiceableAddressCandidate{
		{AddressID: "a", InventoryIDs: "inv1,inv2", Reason: models.ReasonNullHistories},
		{AddressID: "b", InventoryIDs: "inv1", Reason: models.ReasonHasInactiveAccount},
	}
	rows, _, err := reports.BuildRemovalList(fixtureInventory(), fixtureAccounts(), nil, serviceable, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	counts := map[string]int{}
	for _, row := range rows {
		counts[row.InventoryItemID]++
	}
	for id, n := range counts {
		if n != 1 {
			t.Errorf("inventory item %s appears %d times", id, n)
		}
	}
	// Output is sorted by inventory item id.
	for i := 1; i < len(rows); i++ {
		if rows[i-1].InventoryItemID >= rows[i].InventoryItemID {
			t.Fatalf("rows not sorted by inventory item id")
		}
	}
}

func TestBuildRemovalList_NonAccountUninstallExcluded(t *testing.T) {
	uninstall := []models.UninstallJobCandidate{
		{EntityType: "Address", EntityID: "9001", Reason: models.ReasonUninstallJob},
		{EntityType: "Account", EntityID: "acct2", Reason: models.ReasonUninstallJob},
	}
	rows, stats, err := reports.BuildRemovalList(fixtureInventory(), fixtureAccounts(), nil, nil, uninstall)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(rows) != 1 || rows[0].InventoryItemID != "inv3" {
		t.Fatalf("only the account-level job may contribute, got %+v", rows)
	}
	if stats.UninstallNonAccount != 1 || stats.UninstallApplied != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestBuildRemovalList_UnmappedCandidatesSkippedNotFatal(t *testing.T) {
	inactive := []models.InactiveAccountCandidate{
		{AccountID: "ghost", Reason: models.ReasonInactiveAccount},
	}
	uninstall := []models.UninstallJobCandidate{
		{EntityType: "Account", EntityID: "ghost2", Reason: models.ReasonUninstallJob},
	}
	rows, stats, err := reports.BuildRemovalList(fixtureInventory(), fixtureAccounts(), inactive, nil, uninstall)
	if err != nil {
		t.Fatalf("unmapped candidates must not abort the run: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %+v", rows)
	}
	if stats.InactiveUnmapped != 1 || stats.UninstallUnmapped != 1 || stats.SkippedTotal() != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestBuildRemovalList_CandidateOutsideBaseInventory(t *testing.T) {
	serviceable := []models.ServiceableAddressCandidate{
		{AddressID: "x", InventoryIDs: "inv99", Reason: models.ReasonNullHistories},
	}
	rows, stats, err := reports.BuildRemovalList(fixtureInventory(), fixtureAccounts(), nil, serviceable, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	row := findRow(t, rows, "inv99")
	if row.Reason != models.ReasonNullHistories {
		t.Errorf("expected reason to survive, got %q", row.Reason)
	}
	if row.InventoryModel != nil || row.AccountID != nil || row.AddressID != nil {
		t.Errorf("detail fields must stay null for inventory outside the base query: %+v", row)
	}
	if stats.RowsWithoutInventoryBase != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestBuildRemovalList_RowDetailsFromBothTables(t *testing.T) {
	serviceable := []models.ServiceableAddressCandidate{
		{AddressID: "9001", InventoryIDs: "inv1", Reason: models.ReasonNullHistories},
	}
	rows, _, err := reports.BuildRemovalList(fixtureInventory(), fixtureAccounts(), nil, serviceable, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	row := findRow(t, rows, "inv1")
	if row.InventoryModel == nil || *row.InventoryModel != "CPE-1000" {
		t.Errorf("expected model from inventory table, got %v", row.InventoryModel)
	}
	if row.MAC == nil || *row.MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("expected mac, got %v", row.MAC)
	}
	if row.IP == nil || *row.IP != "10.0.0.8" {
		t.Errorf("expected ip, got %v", row.IP)
	}
	if row.AccountID == nil || *row.AccountID != "acct1" {
		t.Errorf("expected account id, got %v", row.AccountID)
	}
	if row.AccountStatus == nil || *row.AccountStatus != "4" {
		t.Errorf("expected account status from inventory snapshot, got %v", row.AccountStatus)
	}
	if row.AccountEmail == nil || *row.AccountEmail != "pat@example.com" {
		t.Errorf("expected contact email from accounts table, got %v", row.AccountEmail)
	}
	if row.AccountPhone == nil || *row.AccountPhone != "(555) 123-0000" {
		t.Errorf("expected formatted phone, got %v", row.AccountPhone)
	}
	if row.EndDate == nil || *row.EndDate != "2025-01-01" {
		t.Errorf("expected latest assignment end date, got %v", row.EndDate)
	}
}

func TestBuildRemovalList_AccountsTableNameWins(t *testing.T) {
	inventory := fixtureInventory()
	inventory[0].AccountName = strPtr("Stale Inline Name")
	serviceable := []models.ServiceableAddressCandidate{
		{AddressID: "9001", InventoryIDs: "inv1", Reason: models.ReasonNullHistories},
	}
	rows, _, err := reports.BuildRemovalList(inventory, fixtureAccounts(), nil, serviceable, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	row := findRow(t, rows, "inv1")
	if row.AccountName == nil || *row.AccountName != "Blue River Coop" {
		t.Errorf("accounts table name must win, got %v", row.AccountName)
	}
}

func TestBuildRemovalList_InlineNameFallback(t *testing.T) {
	// No accounts-table row for the item's account: the inline snapshot fills in.
	serviceable := []models.ServiceableAddressCandidate{
		{AddressID: "9001", InventoryIDs: "inv1", Reason: models.ReasonNullHistories},
	}
	rows, _, err := reports.BuildRemovalList(fixtureInventory(), nil, nil, serviceable, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	row := findRow(t, rows, "inv1")
	if row.AccountName == nil || *row.AccountName != "Blue River Coop" {
		t.Errorf("expected inline snapshot fallback, got %v", row.AccountName)
	}
	if row.AccountEmail != nil || row.EndDate != nil {
		t.Errorf("fields only the accounts table carries must stay null: %+v", row)
	}
}

func TestBuildRemovalList_EmptyPrimaryKeyIsFatal(t *testing.T) {
	badInventory := []models.InventoryRecord{{InventoryItemID: "  "}}
	if _, _, err := reports.BuildRemovalList(badInventory, nil, nil, nil, nil); err == nil {
		t.Fatalf("expected error for inventory row without primary key")
	}
	badAccounts := []models.AccountRecord{{AccountID: ""}}
	if _, _, err := reports.BuildRemovalList(fixtureInventory(), badAccounts, nil, nil, nil); err == nil {
		t.Fatalf("expected error for account row without primary key")
	}
}

func TestBuildRemovalList_NoCandidatesNoRows(t *testing.T) {
	rows, stats, err := reports.BuildRemovalList(fixtureInventory(), fixtureAccounts(), nil, nil, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("inventory without reasons must not appear, got %+v", rows)
	}
	if stats.InventoryRows != 4 || stats.AccountRows != 2 || stats.OutputRows != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
