package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/sonar_removals/sonar"
	"bitbucket.org/mmdatafocus/sonar_removals/utils"
)

// Reason literals carried verbatim into the report. Stable strings: operators
// filter the output on them.
const (
	ReasonInactiveAccount    = "Inactive Account with Inventory Assigned"
	ReasonNullHistories      = "NULL histories"
	ReasonAccountMissing     = "Any account missing"
	ReasonHasInactiveAccount = "Has inactive account"
	ReasonUninstallJob       = "Uninstall Job"
)

// AccountStatusActive is the one status name that keeps an address off the
// serviceable-address candidate list.
const AccountStatusActive = "Active"

// QueryExecutor is the collaborator boundary: one GraphQL round trip.
type QueryExecutor interface {
	Execute(ctx context.Context, query string, variables any) (json.RawMessage, error)
}

// InactiveAccountCandidate is an account whose status does not activate
// billing and that still has inventory assigned somewhere.
type InactiveAccountCandidate struct {
	AccountID string
	Name      string
	Reason    string
}

// ServiceableAddressCandidate is a PHYSICAL address holding inventory with no
// qualifying active account. InventoryIDs keeps the source's comma-joined
// shape; the reconciler expands it.
type ServiceableAddressCandidate struct {
	AddressID    string
	AddressType  string
	InventoryIDs string
	Reason       string
}

// UninstallJobCandidate is an open job of type Uninstall. The job subject is
// polymorphic; EntityType carries the concrete type name for the account-only
// policy check downstream.
type UninstallJobCandidate struct {
	EntityType string
	EntityID   string
	Reason     string
}

type inactiveAccountsEnvelope struct {
	Accounts *struct {
		Entities *[]struct {
			ID   FlexID  `json:"id"`
			Name *string `json:"name"`
		} `json:"entities"`
	} `json:"accounts"`
}

// ParseInactiveAccounts transforms the getInactiveAccountsWithAssignedInventory
// data member into candidates, one per returned account.
func ParseInactiveAccounts(data json.RawMessage) ([]InactiveAccountCandidate, error) {
	var envelope inactiveAccountsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: accounts: %v", utils.ErrorMalformedResponse, err)
	}
	if envelope.Accounts == nil || envelope.Accounts.Entities == nil {
		return nil, fmt.Errorf("%w: missing accounts.entities", utils.ErrorMalformedResponse)
	}

	entities := *envelope.Accounts.Entities
	candidates := make([]InactiveAccountCandidate, 0, len(entities))
	for _, account := range entities {
		candidates = append(candidates, InactiveAccountCandidate{
			AccountID: account.ID.String(),
			Name:      utils.DereferencePtr(account.Name),
			Reason:    ReasonInactiveAccount,
		})
	}
	return candidates, nil
}

type serviceableHistoryEntity struct {
	ID        FlexID  `json:"id"`
	CreatedAt *string `json:"created_at"`
	EndDate   *string `json:"end_date"`
	Account   *struct {
		Name          *string `json:"name"`
		AccountStatus *struct {
			Name *string `json:"name"`
		} `json:"account_status"`
	} `json:"account"`
}

type serviceableAddressEntity struct {
	ID                  FlexID  `json:"id"`
	Type                *string `json:"type"`
	Serviceable         *bool   `json:"serviceable"`
	AssignmentHistories *struct {
		Entities []serviceableHistoryEntity `json:"entities"`
	} `json:"serviceable_address_account_assignment_histories"`
	InventoryItems *struct {
		Entities []struct {
			ID FlexID `json:"id"`
		} `json:"entities"`
	} `json:"inventory_items"`
}

type serviceableAddressesEnvelope struct {
	Addresses *struct {
		Entities *[]serviceableAddressEntity `json:"entities"`
	} `json:"addresses"`
}

// classifyServiceableAddress applies the candidate precedence, first match
// wins, evaluated per address:
//  1. no history entries at all
//  2. some history entry has no account relation
//  3. some history entry's account status is not exactly "Active"
//  4. otherwise not a candidate
func classifyServiceableAddress(histories []serviceableHistoryEntity) (string, bool) {
	if len(histories) == 0 {
		return ReasonNullHistories, true
	}
	for _, h := range histories {
		if h.Account == nil {
			return ReasonAccountMissing, true
		}
	}
	for _, h := range histories {
		statusName := ""
		if h.Account.AccountStatus != nil {
			statusName = utils.DereferencePtr(h.Account.AccountStatus.Name)
		}
		if statusName != AccountStatusActive {
			return ReasonHasInactiveAccount, true
		}
	}
	return "", false
}

// ParseServiceableAddresses classifies each returned address and emits a
// candidate for every one without a qualifying active account.
func ParseServiceableAddresses(data json.RawMessage) ([]ServiceableAddressCandidate, error) {
	var envelope serviceableAddressesEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: addresses: %v", utils.ErrorMalformedResponse, err)
	}
	if envelope.Addresses == nil || envelope.Addresses.Entities == nil {
		return nil, fmt.Errorf("%w: missing addresses.entities", utils.ErrorMalformedResponse)
	}

	var candidates []ServiceableAddressCandidate
	for _, address := range *envelope.Addresses.Entities {
		var histories []serviceableHistoryEntity
		if address.AssignmentHistories != nil {
			histories = address.AssignmentHistories.Entities
		}
		reason, isCandidate := classifyServiceableAddress(histories)
		if !isCandidate {
			continue
		}

		var inventoryIDs []string
		if address.InventoryItems != nil {
			for _, item := range address.InventoryItems.Entities {
				if !item.ID.IsZero() {
					inventoryIDs = append(inventoryIDs, item.ID.String())
				}
			}
		}
		candidates = append(candidates, ServiceableAddressCandidate{
			AddressID:    address.ID.String(),
			AddressType:  utils.DereferencePtr(address.Type),
			InventoryIDs: strings.Join(inventoryIDs, ","),
			Reason:       reason,
		})
	}
	return candidates, nil
}

type uninstallJobsEnvelope struct {
	Jobs *struct {
		Entities *[]struct {
			Complete *bool `json:"complete"`
			JobType  *struct {
				Name *string `json:"name"`
			} `json:"job_type"`
			Jobbable *struct {
				TypeName string `json:"__typename"`
				ID       FlexID `json:"id"`
			} `json:"jobbable"`
		} `json:"entities"`
	} `json:"jobs"`
}

// ParseUninstallJobs transforms the getUninstallJobs data member into
// candidates keyed by the job's polymorphic subject.
func ParseUninstallJobs(data json.RawMessage) ([]UninstallJobCandidate, error) {
	var envelope uninstallJobsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: jobs: %v", utils.ErrorMalformedResponse, err)
	}
	if envelope.Jobs == nil || envelope.Jobs.Entities == nil {
		return nil, fmt.Errorf("%w: missing jobs.entities", utils.ErrorMalformedResponse)
	}

	entities := *envelope.Jobs.Entities
	candidates := make([]UninstallJobCandidate, 0, len(entities))
	for _, job := range entities {
		if job.Jobbable == nil {
			continue
		}
		candidates = append(candidates, UninstallJobCandidate{
			EntityType: job.Jobbable.TypeName,
			EntityID:   job.Jobbable.ID.String(),
			Reason:     ReasonUninstallJob,
		})
	}
	return candidates, nil
}

// ExpandInventoryIDs splits a candidate's inventory ids (single id or
// delimited list) into normalized, deduplicated individual ids.
func (c ServiceableAddressCandidate) ExpandInventoryIDs() []string {
	var ids []string
	for _, part := range strings.Split(c.InventoryIDs, ",") {
		if key := NormalizeKey(part); key != "" {
			ids = append(ids, key)
		}
	}
	return utils.UniqueSlice(ids)
}

func BuildInactiveAccountCandidates(ctx context.Context, exec QueryExecutor, recordsPerPage int) ([]InactiveAccountCandidate, error) {
	data, err := exec.Execute(ctx, sonar.QueryGetInactiveAccounts, sonar.InactiveAccountsVariables(recordsPerPage))
	if err != nil {
		return nil, err
	}
	return ParseInactiveAccounts(data)
}

func BuildServiceableAddressCandidates(ctx context.Context, exec QueryExecutor, recordsPerPage int) ([]ServiceableAddressCandidate, error) {
	data, err := exec.Execute(ctx, sonar.QueryGetServiceableAddresses, sonar.ServiceableAddressesVariables(recordsPerPage))
	if err != nil {
		return nil, err
	}
	return ParseServiceableAddresses(data)
}

func BuildUninstallJobCandidates(ctx context.Context, exec QueryExecutor, recordsPerPage int) ([]UninstallJobCandidate, error) {
	data, err := exec.Execute(ctx, sonar.QueryGetUninstallJobs, sonar.UninstallJobsVariables(recordsPerPage))
	if err != nil {
		return nil, err
	}
	return ParseUninstallJobs(data)
}
