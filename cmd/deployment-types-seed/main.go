package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
	"bitbucket.org/mmdatafocus/sonar_removals/sonar"
)

// Bulk-creates deployment types across a range of inventory models, one
// aliased mutation per (model, type) pair in a single request.
func main() {
	modelIDsArg := flag.String("model-ids", "", "Comma-separated inventory model ids (required)")
	typesArg := flag.String("types", "Active,Inactive,Maintenance,Retired", "Comma-separated deployment type names")
	dryRun := flag.Bool("dry-run", false, "Print the mutation instead of executing it")
	flag.Parse()

	logger := config.GetLogger()

	modelIDs, err := parseIntList(*modelIDsArg)
	if err != nil || len(modelIDs) == 0 {
		fmt.Fprintln(os.Stderr, "-model-ids is required, e.g. -model-ids 3,4,5")
		os.Exit(2)
	}
	var types []string
	for _, t := range strings.Split(*typesArg, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		fmt.Fprintln(os.Stderr, "-types must name at least one deployment type")
		os.Exit(2)
	}

	mutation := sonar.BuildCreateDeploymentTypesMutation(modelIDs, types)
	if *dryRun {
		fmt.Println(mutation)
		return
	}

	cfg, err := config.LoadSonarConfig()
	if err != nil {
		config.LogError(logger, "deployment-types-seed", "main", "invalid configuration", nil, err)
		os.Exit(1)
	}

	fmt.Printf("Creating %d deployment types for %d models (%d operations)\n",
		len(types), len(modelIDs), len(types)*len(modelIDs))

	client := sonar.NewClient(cfg, logger)
	data, err := client.Execute(context.Background(), mutation, nil)
	if err != nil {
		config.LogError(logger, "deployment-types-seed", "main", "mutation failed", nil, err)
		os.Exit(1)
	}

	var created map[string]struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		config.LogError(logger, "deployment-types-seed", "main", "unexpected response shape", nil, err)
		os.Exit(1)
	}
	for alias, result := range created {
		fmt.Printf("  %s -> id %s\n", alias, result.ID)
	}
	fmt.Printf("Total deployment types created: %d\n", len(created))
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
