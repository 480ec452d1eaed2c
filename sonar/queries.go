package sonar

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Fixed request templates. The documents are transcribed from the operator
// scripts this exporter replaces and validated with gqlparser at package init,
// so a typo in a template fails at startup instead of mid-run.

const QueryInventoryModels = `
query inventory {
  inventory_models {
    entities {
      id
      model_name
      name
    }
  }
}
`

const QueryGetInventoryItems = `
query getInventoryItems($paginator: Paginator, $addressTypeOnly: Search) {
  inventory_items(paginator: $paginator, search: [$addressTypeOnly]) {
    entities {
      inventoryitemable {
        ... on Address {
          addressable {
            ... on Account {
              Account_name: name
              Account_account_status_id: account_status_id
              Account_account_type_id: account_type_id
              Account_is_delinquent: is_delinquent
              Account_activation_date: activation_date
              Account_next_bill_date: next_bill_date
              Account_next_recurring_charge_amount: next_recurring_charge_amount
              Account_disconnection_reason_id: disconnection_reason_id
              Account_id: id
              __typename
            }
          }
          Address_address_status_id: address_status_id
          Address_line1: line1
          Address_line2: line2
          Address_city: city
          Address_county: county
          Address_subdivision: subdivision
          Address_zip: zip
          Address_country: country
          Address_latitude: latitude
          Address_longitude: longitude
          Address_type: type
          Address_addressable_type: addressable_type
          Address_addressable_id: addressable_id
          Address_serviceable: serviceable
          Address_id: id
          __typename
        }
        __typename
      }
      inventoryitemable_type
      inventoryitemable_id
      deployment_type_id
      inventory_model_id
      account_service_id
      id
      inventory_model {
        enabled
        manufacturer_id
        inventory_model_category_id
        model_name
        name
      }
      deployment_type {
        name
        inventory_model_id
        id
      }
      inventory_model_field_data {
        entities {
          inventory_model_field_id
          inventory_item_id
          value
          id
          inventory_model_field {
            inventory_model_id
            name
            type
            id
          }
          ip_assignments {
            entities {
              subnet
              soft
              reference
              description
              subnet_id
              ip_pool_id
              ipassignmentable_type
              ipassignmentable_id
              id
            }
          }
        }
      }
    }
  }
}
`

const QueryGetAccounts = `
query getAccounts($paginator: Paginator) {
  accounts(paginator: $paginator) {
    entities {
      id
      name
      serviceable_address_account_assignment_histories {
        entities {
          created_at
          end_date
          id
          account_id
          address_id
        }
      }
      contacts {
        entities {
          name
          role
          primary
          email_address
          phone_numbers {
            entities {
              country
              number
              number_formatted
            }
          }
        }
      }
      addresses {
        entities {
          address_status_id
          line1
          line2
          city
          county
          subdivision
          zip
          country
          latitude
          longitude
          type
          addressable_type
          addressable_id
          serviceable
          id
        }
      }
    }
  }
}
`

const QueryGetInactiveAccounts = `
query getInactiveAccountsWithAssignedInventory($paginator: Paginator, $searchInactive: ReverseRelationFilter, $searchHasInventory: ReverseRelationFilter) {
  accounts(paginator: $paginator, reverse_relation_filters: [$searchInactive, $searchHasInventory]) {
    entities {
      id
      name
      account_status {
        activates_account
      }
      addresses {
        entities {
          type
          inventory_items {
            entities {
              id
              inventory_model_id
            }
          }
        }
      }
    }
  }
}
`

const QueryGetServiceableAddresses = `
query getServiceableAddressesWithInventory($paginator: Paginator, $physicalOnly: Search, $inventoryExists: ReverseRelationFilter) {
  addresses(paginator: $paginator, search: [$physicalOnly], reverse_relation_filters: [$inventoryExists]) {
    entities {
      id
      __typename
      type
      serviceable
      serviceable_address_account_assignment_histories {
        entities {
          id
          created_at
          end_date
          account {
            name
            account_status {
              name
            }
          }
        }
      }
      inventory_items {
        entities {
          id
          inventory_model_id
        }
      }
    }
  }
}
`

const QueryGetUninstallJobs = `
query getUninstallJobs($paginator: Paginator, $incompleteOnly: Search, $jobTypeUninstall: ReverseRelationFilter) {
  jobs(paginator: $paginator, search: [$incompleteOnly], reverse_relation_filters: [$jobTypeUninstall]) {
    entities {
      complete
      job_type {
        name
      }
      jobbable {
        __typename
        id
      }
    }
  }
}
`

var allQueryDocuments = []string{
	QueryInventoryModels,
	QueryGetInventoryItems,
	QueryGetAccounts,
	QueryGetInactiveAccounts,
	QueryGetServiceableAddresses,
	QueryGetUninstallJobs,
}

func init() {
	for _, q := range allQueryDocuments {
		if _, err := parser.ParseQuery(&ast.Source{Name: "sonar query", Input: q}); err != nil {
			panic(fmt.Sprintf("invalid graphql document: %v", err))
		}
	}
}

// OperationName extracts the operation name of a document for log/error
// context. Unparsable or anonymous documents report as "unknown".
func OperationName(query string) string {
	doc, err := parser.ParseQuery(&ast.Source{Name: "sonar query", Input: query})
	if err != nil || len(doc.Operations) == 0 || doc.Operations[0].Name == "" {
		return "unknown"
	}
	return doc.Operations[0].Name
}

func paginator(recordsPerPage int) map[string]any {
	// The source platform caps at one very large page; multi-page fetch is
	// deliberately out of contract.
	return map[string]any{
		"page":             1,
		"records_per_page": recordsPerPage,
	}
}

func InventoryItemsVariables(recordsPerPage int) map[string]any {
	return map[string]any{
		"paginator": paginator(recordsPerPage),
		"addressTypeOnly": map[string]any{
			"string_fields": []map[string]any{
				{
					"attribute":    "inventoryitemable_type",
					"search_value": "Address",
					"match":        true,
				},
			},
		},
	}
}

func AccountsVariables(recordsPerPage int) map[string]any {
	return map[string]any{
		"paginator": paginator(recordsPerPage),
	}
}

func InactiveAccountsVariables(recordsPerPage int) map[string]any {
	return map[string]any{
		"paginator": paginator(recordsPerPage),
		"searchInactive": map[string]any{
			"relation": "account_status",
			"group":    "1",
			"search": []map[string]any{
				{
					"boolean_fields": []map[string]any{
						{
							"attribute":    "activates_account",
							"search_value": false,
						},
					},
				},
			},
		},
		"searchHasInventory": map[string]any{
			"relation": "addresses.inventory_items",
			"group":    "1",
			"search": []map[string]any{
				{"exists": "id"},
			},
		},
	}
}

func ServiceableAddressesVariables(recordsPerPage int) map[string]any {
	return map[string]any{
		"paginator": paginator(recordsPerPage),
		"physicalOnly": map[string]any{
			"string_fields": []map[string]any{
				{
					"attribute":        "type",
					"search_value":     "PHYSICAL",
					"match":            true,
					"partial_matching": true,
				},
			},
		},
		"inventoryExists": map[string]any{
			"relation": "inventory_items",
			"search": []map[string]any{
				{"exists": "id"},
			},
		},
	}
}

func UninstallJobsVariables(recordsPerPage int) map[string]any {
	return map[string]any{
		"paginator": paginator(recordsPerPage),
		"incompleteOnly": map[string]any{
			"boolean_fields": []map[string]any{
				{
					"attribute":    "complete",
					"search_value": false,
				},
			},
		},
		"jobTypeUninstall": map[string]any{
			"relation": "job_type",
			"group":    "1",
			"search": []map[string]any{
				{
					"string_fields": []map[string]any{
						{
							"attribute":        "name",
							"search_value":     "Uninstall",
							"match":            true,
							"partial_matching": false,
						},
					},
				},
			},
		},
	}
}

// BuildCreateDeploymentTypesMutation expands a cross product of inventory
// model ids and deployment type names into one aliased bulk mutation.
func BuildCreateDeploymentTypesMutation(inventoryModelIDs []int, deploymentTypes []string) string {
	var b strings.Builder
	b.WriteString("mutation CreateDeploymentTypes {")
	for _, modelID := range inventoryModelIDs {
		for _, dtype := range deploymentTypes {
			safeName := strings.ToLower(strings.NewReplacer(" ", "_", "-", "_").Replace(dtype))
			alias := fmt.Sprintf("id%d_%s", modelID, safeName)
			fmt.Fprintf(&b, `
  %s: createDeploymentType(input: {
    inventory_model_id: %d
    name: %q
  }) {
    id
  }`, alias, modelID, dtype)
		}
	}
	b.WriteString("\n}")
	return b.String()
}
