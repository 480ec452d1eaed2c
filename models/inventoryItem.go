package models

import (
	"encoding/json"
	"fmt"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
	"bitbucket.org/mmdatafocus/sonar_removals/utils"
	"github.com/shopspring/decimal"
)

// InventoryRecord is one flattened inventory item. Every record carries the
// full column set: optional branches that were absent in the response are
// nil / empty rather than missing, so downstream tabular code never has to
// probe for columns.
type InventoryRecord struct {
	InventoryItemID      string
	InventoryitemableTyp string
	InventoryitemableID  string
	DeploymentTypeID     string
	InventoryModelID     string
	AccountServiceID     string

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

	AccountID                        string
	AccountName                      *string
	AccountStatusID                  FlexID
	AccountTypeID                    FlexID
	AccountIsDelinquent              *bool
	AccountActivationDate            *string
	AccountNextBillDate              *string
	AccountNextRecurringChargeAmount *decimal.Decimal
	AccountDisconnectionReasonID     FlexID

	DeploymentTypeName *string
	DeploymentTypeRef  FlexID

	ModelEnabled      *bool
	ModelManufacturer FlexID
	ModelCategoryID   FlexID
	ModelModelName    *string
	ModelName         *string

	FieldDataID    FlexID
	FieldDataValue *string
	FieldName      *string
	FieldType      *string

	IPAssignmentID FlexID
	IPSubnet       *string
	IPSubnetID     FlexID
	IPPoolID       FlexID
	IPSoft         *bool
}

type inventoryAccountPayload struct {
	TypeName                  string           `json:"__typename"`
	Name                      *string          `json:"Account_name"`
	AccountStatusID           FlexID           `json:"Account_account_status_id"`
	AccountTypeID             FlexID           `json:"Account_account_type_id"`
	IsDelinquent              *bool            `json:"Account_is_delinquent"`
	ActivationDate            *string          `json:"Account_activation_date"`
	NextBillDate              *string          `json:"Account_next_bill_date"`
	NextRecurringChargeAmount *decimal.Decimal `json:"Account_next_recurring_charge_amount"`
	DisconnectionReasonID     FlexID           `json:"Account_disconnection_reason_id"`
	ID                        FlexID           `json:"Account_id"`
}

type inventoryAddressPayload struct {
	TypeName        string                   `json:"__typename"`
	Addressable     *inventoryAccountPayload `json:"addressable"`
	AddressStatusID FlexID                   `json:"Address_address_status_id"`
	Line1           *string                  `json:"Address_line1"`
	Line2           *string                  `json:"Address_line2"`
	City            *string                  `json:"Address_city"`
	County          *string                  `json:"Address_county"`
	Subdivision     *string                  `json:"Address_subdivision"`
	Zip             *string                  `json:"Address_zip"`
	Country         *string                  `json:"Address_country"`
	Latitude        *float64                 `json:"Address_latitude"`
	Longitude       *float64                 `json:"Address_longitude"`
	Type            *string                  `json:"Address_type"`
	AddressableType *string                  `json:"Address_addressable_type"`
	AddressableID   FlexID                   `json:"Address_addressable_id"`
	Serviceable     *bool                    `json:"Address_serviceable"`
	ID              FlexID                   `json:"Address_id"`
}

// inventoryItemablePayload is the polymorphic inventoryitemable union. Only
// the Address case is in contract; other tags keep their type name so the
// flattener can log them instead of guessing a field layout.
type inventoryItemablePayload struct {
	TypeName string
	Address  *inventoryAddressPayload
}

func (u *inventoryItemablePayload) UnmarshalJSON(b []byte) error {
	var probe struct {
		TypeName string `json:"__typename"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	u.TypeName = probe.TypeName
	if probe.TypeName == "Address" {
		var addr inventoryAddressPayload
		if err := json.Unmarshal(b, &addr); err != nil {
			return err
		}
		u.Address = &addr
	}
	return nil
}

type inventoryFieldDataEntity struct {
	InventoryModelFieldID FlexID  `json:"inventory_model_field_id"`
	InventoryItemID       FlexID  `json:"inventory_item_id"`
	Value                 *string `json:"value"`
	ID                    FlexID  `json:"id"`
	InventoryModelField   *struct {
		InventoryModelID FlexID  `json:"inventory_model_id"`
		Name             *string `json:"name"`
		Type             *string `json:"type"`
		ID               FlexID  `json:"id"`
	} `json:"inventory_model_field"`
	IPAssignments *struct {
		Entities []struct {
			Subnet             *string `json:"subnet"`
			Soft               *bool   `json:"soft"`
			Reference          *string `json:"reference"`
			Description        *string `json:"description"`
			SubnetID           FlexID  `json:"subnet_id"`
			IPPoolID           FlexID  `json:"ip_pool_id"`
			IpassignmentabType *string `json:"ipassignmentable_type"`
			IpassignmentableID FlexID  `json:"ipassignmentable_id"`
			ID                 FlexID  `json:"id"`
		} `json:"entities"`
	} `json:"ip_assignments"`
}

type inventoryItemEntity struct {
	Inventoryitemable     *inventoryItemablePayload `json:"inventoryitemable"`
	InventoryitemableType *string                   `json:"inventoryitemable_type"`
	InventoryitemableID   FlexID                    `json:"inventoryitemable_id"`
	DeploymentTypeID      FlexID                    `json:"deployment_type_id"`
	InventoryModelID      FlexID                    `json:"inventory_model_id"`
	AccountServiceID      FlexID                    `json:"account_service_id"`
	ID                    FlexID                    `json:"id"`
	InventoryModel        *struct {
		Enabled        *bool   `json:"enabled"`
		ManufacturerID FlexID  `json:"manufacturer_id"`
		CategoryID     FlexID  `json:"inventory_model_category_id"`
		ModelName      *string `json:"model_name"`
		Name           *string `json:"name"`
	} `json:"inventory_model"`
	DeploymentType *struct {
		Name             *string `json:"name"`
		InventoryModelID FlexID  `json:"inventory_model_id"`
		ID               FlexID  `json:"id"`
	} `json:"deployment_type"`
	InventoryModelFieldData *struct {
		Entities []inventoryFieldDataEntity `json:"entities"`
	} `json:"inventory_model_field_data"`
}

type inventoryItemsEnvelope struct {
	InventoryItems *struct {
		Entities *[]inventoryItemEntity `json:"entities"`
	} `json:"inventory_items"`
}

// FlattenInventoryItems converts the nested getInventoryItems data member
// into one InventoryRecord per inventory item. Pure transformation: a missing
// envelope key is a structural error, not an empty table.
func FlattenInventoryItems(data json.RawMessage) ([]InventoryRecord, error) {
	var envelope inventoryItemsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: inventory_items: %v", utils.ErrorMalformedResponse, err)
	}
	if envelope.InventoryItems == nil {
		return nil, fmt.Errorf("%w: missing inventory_items", utils.ErrorMalformedResponse)
	}
	if envelope.InventoryItems.Entities == nil {
		return nil, fmt.Errorf("%w: missing inventory_items.entities", utils.ErrorMalformedResponse)
	}

	logger := config.GetLogger()
	entities := *envelope.InventoryItems.Entities
	records := make([]InventoryRecord, 0, len(entities))
	for _, item := range entities {
		rec := InventoryRecord{
			InventoryItemID:      item.ID.String(),
			InventoryitemableTyp: utils.DereferencePtr(item.InventoryitemableType),
			InventoryitemableID:  item.InventoryitemableID.String(),
			DeploymentTypeID:     item.DeploymentTypeID.String(),
			InventoryModelID:     item.InventoryModelID.String(),
			AccountServiceID:     item.AccountServiceID.String(),
		}

		if item.Inventoryitemable != nil {
			if item.Inventoryitemable.Address != nil {
				addr := item.Inventoryitemable.Address
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

				if acct := addr.Addressable; acct != nil {
					if acct.TypeName == "Account" || acct.TypeName == "" {
						rec.AccountID = acct.ID.String()
						rec.AccountName = acct.Name
						rec.AccountStatusID = acct.AccountStatusID
						rec.AccountTypeID = acct.AccountTypeID
						rec.AccountIsDelinquent = acct.IsDelinquent
						rec.AccountActivationDate = acct.ActivationDate
						rec.AccountNextBillDate = acct.NextBillDate
						rec.AccountNextRecurringChargeAmount = acct.NextRecurringChargeAmount
						rec.AccountDisconnectionReasonID = acct.DisconnectionReasonID
					} else {
						config.LogWarn(logger, "models", "FlattenInventoryItems",
							"addressable has out-of-contract type; account fields left null",
							map[string]any{"inventory_item_id": rec.InventoryItemID, "typename": acct.TypeName})
					}
				}
			} else if item.Inventoryitemable.TypeName != "" {
				config.LogWarn(logger, "models", "FlattenInventoryItems",
					"inventoryitemable has out-of-contract type; address fields left null",
					map[string]any{"inventory_item_id": rec.InventoryItemID, "typename": item.Inventoryitemable.TypeName})
			}
		}

		if dt := item.DeploymentType; dt != nil {
			rec.DeploymentTypeName = dt.Name
			rec.DeploymentTypeRef = dt.ID
		}
		if im := item.InventoryModel; im != nil {
			rec.ModelEnabled = im.Enabled
			rec.ModelManufacturer = im.ManufacturerID
			rec.ModelCategoryID = im.CategoryID
			rec.ModelModelName = im.ModelName
			rec.ModelName = im.Name
		}

		// One-to-one reduction of a one-to-many relation: only the first
		// field datum and its first IP assignment represent the item.
		// Documented limitation of the report, not a bug.
		if fdWrap := item.InventoryModelFieldData; fdWrap != nil {
			if fd := TakeFirst(fdWrap.Entities); fd != nil {
				rec.FieldDataID = fd.ID
				rec.FieldDataValue = fd.Value
				if fd.InventoryModelField != nil {
					rec.FieldName = fd.InventoryModelField.Name
					rec.FieldType = fd.InventoryModelField.Type
				}
				if fd.IPAssignments != nil {
					if ip := TakeFirst(fd.IPAssignments.Entities); ip != nil {
						rec.IPAssignmentID = ip.ID
						rec.IPSubnet = ip.Subnet
						rec.IPSubnetID = ip.SubnetID
						rec.IPPoolID = ip.IPPoolID
						rec.IPSoft = ip.Soft
					}
				}
			}
		}

		records = append(records, rec)
	}
	return records, nil
}
