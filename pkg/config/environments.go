package config

import "strings"

// EnvironmentMapping ties a target branch to a dbt environment name
type EnvironmentMapping struct {
	Branch      string
	Environment string
}

// ParseEnvironmentBranchMap parses one "branch:environment" pair per line.
// Lines without both halves are skipped; extra colon-separated parts are ignored.
func ParseEnvironmentBranchMap(raw string) []EnvironmentMapping {
	mappings := []EnvironmentMapping{}
	for _, line := range strings.Split(raw, "\n") {
		parts := strings.Split(strings.TrimSpace(line), ":")
		if len(parts) < 2 {
			continue
		}
		branch := strings.TrimSpace(parts[0])
		environment := strings.TrimSpace(parts[1])
		if branch == "" || environment == "" {
			continue
		}
		mappings = append(mappings, EnvironmentMapping{Branch: branch, Environment: environment})
	}
	return mappings
}

// EnvironmentForBranch returns the dbt environment of the first mapping for
// branch, or "" when the branch is unmapped.
func (c *Config) EnvironmentForBranch(branch string) string {
	if c == nil {
		return ""
	}
	for _, mapping := range c.Environments {
		if mapping.Branch == branch {
			return mapping.Environment
		}
	}
	return ""
}
