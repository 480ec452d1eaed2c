package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
	"bitbucket.org/mmdatafocus/sonar_removals/sonar"
)

// Connectivity diagnostic: runs the inventory_models listing query and prints
// what came back. Meant to be run once after changing endpoint or API key.
func main() {
	banner := strings.Repeat("=", 60)
	fmt.Println(banner)
	fmt.Println("SONAR GRAPHQL CONNECTION TEST")
	fmt.Println(banner)

	if testConnection() {
		fmt.Println(banner)
		fmt.Println("TEST PASSED - Ready to run bulk operations!")
		fmt.Println(banner)
		return
	}
	fmt.Println(banner)
	fmt.Println("TEST FAILED - Fix configuration and try again")
	fmt.Println(banner)
	os.Exit(1)
}

func testConnection() bool {
	cfg, err := config.LoadSonarConfig()
	if err != nil {
		fmt.Printf("ERROR: invalid configuration: %v\n", err)
		return false
	}
	fmt.Printf("Testing connection to: %s\n", cfg.Endpoint)
	if cfg.APIKey != "" {
		masked := cfg.APIKey
		if len(masked) > 10 {
			masked = masked[:10] + "..."
		}
		fmt.Printf("Using API key: %s\n", masked)
	} else {
		fmt.Println("No API key set (may be required)")
	}

	client := sonar.NewClient(cfg, config.GetLogger())
	data, err := client.Execute(context.Background(), sonar.QueryInventoryModels, nil)
	if err != nil {
		fmt.Printf("Query failed: %v\n", err)
		return false
	}

	var parsed struct {
		InventoryModels struct {
			Entities []struct {
				ID        json.Number `json:"id"`
				ModelName string      `json:"model_name"`
				Name      string      `json:"name"`
			} `json:"entities"`
		} `json:"inventory_models"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		fmt.Printf("Unexpected response shape: %v\n", err)
		return false
	}

	fmt.Println("Connection successful!")
	fmt.Println("Inventory Models Found:")
	for _, model := range parsed.InventoryModels.Entities {
		fmt.Printf("  ID: %s  Model: %s  Name: %s\n", model.ID, model.ModelName, model.Name)
	}
	fmt.Printf("Total models found: %d\n", len(parsed.InventoryModels.Entities))
	return true
}
