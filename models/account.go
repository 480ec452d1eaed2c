package models

import (
	"encoding/json"
	"fmt"

	"bitbucket.org/mmdatafocus/sonar_removals/utils"
)

const assignmentHistorySlots = 3

// AssignmentHistory is one serviceable-address account assignment summary.
type AssignmentHistory struct {
	CreatedAt *string
	EndDate   *string
	ID        string
	AccountID string
	AddressID string
}

// AccountRecord is one flattened account. The one-to-many relations are
// reduced to fixed slots: the three most recent assignment histories (newest
// first), the first contact with its first phone number, and the first
// address. Everything beyond those slots is dropped by design.
type AccountRecord struct {
	AccountID string
	Name      *string

	// Index 0 is the most recent history; unfilled slots are nil.
	AssignmentHistories [assignmentHistorySlots]*AssignmentHistory

	ContactName    *string
	ContactRole    *string
	ContactPrimary *bool
	ContactEmail   *string

	PhoneCountry         *string
	PhoneNumber          *string
	PhoneNumberFormatted *string

	AddressID              string
	AddressStatusID        FlexID
	AddressLine1           *string
	AddressLine2           *string
	AddressCity            *string
	AddressCounty          *string
	AddressSubdivision     *string
	AddressZip             *string
	AddressCountry         *string
	AddressLatitude        *float64
	AddressLongitude       *float64
	AddressType            *string
	AddressAddressableType *string
	AddressAddressableID   FlexID
	AddressServiceable     *bool
}

// MostRecentEndDate returns the end date of the latest assignment history.
func (a *AccountRecord) MostRecentEndDate() *string {
	if a.AssignmentHistories[0] == nil {
		return nil
	}
	return a.AssignmentHistories[0].EndDate
}

type accountAssignmentHistoryEntity struct {
	CreatedAt *string `json:"created_at"`
	EndDate   *string `json:"end_date"`
	ID        FlexID  `json:"id"`
	AccountID FlexID  `json:"account_id"`
	AddressID FlexID  `json:"address_id"`
}

type accountContactEntity struct {
	Name         *string `json:"name"`
	Role         *string `json:"role"`
	Primary      *bool   `json:"primary"`
	EmailAddress *string `json:"email_address"`
	PhoneNumbers *struct {
		Entities []struct {
			Country         *string `json:"country"`
			Number          *string `json:"number"`
			NumberFormatted *string `json:"number_formatted"`
		} `json:"entities"`
	} `json:"phone_numbers"`
}

type accountAddressEntity struct {
	AddressStatusID FlexID   `json:"address_status_id"`
	Line1           *string  `json:"line1"`
	Line2           *string  `json:"line2"`
	City            *string  `json:"city"`
	County          *string  `json:"county"`
	Subdivision     *string  `json:"subdivision"`
	Zip             *string  `json:"zip"`
	Country         *string  `json:"country"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	Type            *string  `json:"type"`
	AddressableType *string  `json:"addressable_type"`
	AddressableID   FlexID   `json:"addressable_id"`
	Serviceable     *bool    `json:"serviceable"`
	ID              FlexID   `json:"id"`
}

type accountEntity struct {
	ID                  FlexID  `json:"id"`
	Name                *string `json:"name"`
	AssignmentHistories *struct {
		Entities []accountAssignmentHistoryEntity `json:"entities"`
	} `json:"serviceable_address_account_assignment_histories"`
	Contacts *struct {
		Entities []accountContactEntity `json:"entities"`
	} `json:"contacts"`
	Addresses *struct {
		Entities []accountAddressEntity `json:"entities"`
	} `json:"addresses"`
}

type accountsEnvelope struct {
	Accounts *struct {
		Entities *[]accountEntity `json:"entities"`
	} `json:"accounts"`
}

// FlattenAccounts converts the nested getAccounts data member into one
// AccountRecord per account.
func FlattenAccounts(data json.RawMessage) ([]AccountRecord, error) {
	var envelope accountsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: accounts: %v", utils.ErrorMalformedResponse, err)
	}
	if envelope.Accounts == nil {
		return nil, fmt.Errorf("%w: missing accounts", utils.ErrorMalformedResponse)
	}
	if envelope.Accounts.Entities == nil {
		return nil, fmt.Errorf("%w: missing accounts.entities", utils.ErrorMalformedResponse)
	}

	entities := *envelope.Accounts.Entities
	records := make([]AccountRecord, 0, len(entities))
	for _, account := range entities {
		rec := AccountRecord{
			AccountID: account.ID.String(),
			Name:      account.Name,
		}

		if account.AssignmentHistories != nil {
			slots := ReduceToSlots(account.AssignmentHistories.Entities, assignmentHistorySlots, TrailingNewestFirst)
			for i, slot := range slots {
				if slot == nil {
					continue
				}
				rec.AssignmentHistories[i] = &AssignmentHistory{
					CreatedAt: slot.CreatedAt,
					EndDate:   slot.EndDate,
					ID:        slot.ID.String(),
					AccountID: slot.AccountID.String(),
					AddressID: slot.AddressID.String(),
				}
			}
		}

		if account.Contacts != nil {
			if contact := TakeFirst(account.Contacts.Entities); contact != nil {
				rec.ContactName = contact.Name
				rec.ContactRole = contact.Role
				rec.ContactPrimary = contact.Primary
				rec.ContactEmail = contact.EmailAddress
				if contact.PhoneNumbers != nil {
					if phone := TakeFirst(contact.PhoneNumbers.Entities); phone != nil {
						rec.PhoneCountry = phone.Country
						rec.PhoneNumber = phone.Number
						rec.PhoneNumberFormatted = phone.NumberFormatted
					}
				}
			}
		}

		if account.Addresses != nil {
			if addr := TakeFirst(account.Addresses.Entities); addr != nil {
				rec.AddressID = addr.ID.String()
				rec.AddressStatusID = addr.AddressStatusID
				rec.AddressLine1 = addr.Line1
				rec.AddressLine2 = addr.Line2
				rec.AddressCity = addr.City
				rec.AddressCounty = addr.County
				rec.AddressSubdivision = addr.Subdivision
				rec.AddressZip = addr.Zip
				rec.AddressCountry = addr.Country
				rec.AddressLatitude = addr.Latitude
				rec.AddressLongitude = addr.Longitude
				rec.AddressType = addr.Type
				rec.AddressAddressableType = addr.AddressableType
				rec.AddressAddressableID = addr.AddressableID
				rec.AddressServiceable = addr.Serviceable
			}
		}

		records = append(records, rec)
	}
	return records, nil
}
