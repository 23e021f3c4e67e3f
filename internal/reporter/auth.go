package reporter

import "fmt"

const (
	setupDocsURL       = "https://github.com/atlanhq/dbt-action/blob/main/README.md"
	gitlabSetupDocsURL = "https://ask.atlan.com/hc/en-us/articles/8284983141007-How-to-integrate-Atlan-with-GitLab"
	instanceURLFormat  = "Make sure your Atlan Instance URL is set in the following format.\n`https://tenant.atlan.com`"
)

// GitHubUnauthorized is posted when the API token is rejected.
// repo is the owner/name of the repository.
func GitHubUnauthorized(instanceURL, serverURL, repo string) string {
	return fmt.Sprintf("We couldn't connect to your Atlan Instance, please make sure to set the valid Atlan Bearer Token as `ATLAN_API_TOKEN` as this repository's action secret.\n\n"+
		"Atlan Instance URL: %s\n\n"+
		"Set your repository action secrets [here](%s/%s/settings/secrets/actions). For more information on how to setup the Atlan dbt Action, please read the [setup documentation here](%s).",
		instanceURL, serverURL, repo, setupDocsURL)
}

// GitHubUnreachable is posted when the instance cannot be reached
func GitHubUnreachable(instanceURL, serverURL, repo string) string {
	return fmt.Sprintf("We couldn't connect to your Atlan Instance, please make sure to set the valid Atlan Instance URL as `ATLAN_INSTANCE_URL` as this repository's action secret.\n\n"+
		"Atlan Instance URL: %s\n\n"+
		"%s\n\n"+
		"Set your repository action secrets [here](%s/%s/settings/secrets/actions). For more information on how to setup the Atlan dbt Action, please read the [setup documentation here](%s).",
		instanceURL, instanceURLFormat, serverURL, repo, setupDocsURL)
}

// GitLabUnauthorized is posted when the API token is rejected.
// project is the full project path, e.g. group/sub/project.
func GitLabUnauthorized(instanceURL, serverURL, project string) string {
	return fmt.Sprintf("We couldn't connect to your Atlan Instance, please make sure to set the valid Atlan Bearer Token as `ATLAN_API_TOKEN` in your .gitlab-ci.yml file.\n\n"+
		"Atlan Instance URL: %s\n\n"+
		"Set your CI/CD variables [here](%s/%s/-/settings/ci_cd). For more information on how to setup the Atlan dbt Action, please read the [setup documentation here](%s).",
		instanceURL, serverURL, project, gitlabSetupDocsURL)
}

// GitLabUnreachable is posted when the instance cannot be reached
func GitLabUnreachable(instanceURL, serverURL, project string) string {
	return fmt.Sprintf("We couldn't connect to your Atlan Instance, please make sure to set the valid Atlan Instance URL as `ATLAN_INSTANCE_URL` in your .gitlab-ci.yml file.\n\n"+
		"Atlan Instance URL: %s\n\n"+
		"%s\n\n"+
		"Set your CI/CD variables [here](%s/%s/-/settings/ci_cd). For more information on how to setup the Atlan dbt Action, please read the [setup documentation here](%s).",
		instanceURL, instanceURLFormat, serverURL, project, gitlabSetupDocsURL)
}

// LocalUnauthorized is printed by local runs when the API token is rejected
func LocalUnauthorized(instanceURL string) string {
	return fmt.Sprintf("We couldn't connect to your Atlan Instance, please make sure `ATLAN_API_TOKEN` holds a valid Atlan Bearer Token.\n\n"+
		"Atlan Instance URL: %s", instanceURL)
}

// LocalUnreachable is printed by local runs when the instance cannot be reached
func LocalUnreachable(instanceURL string) string {
	return fmt.Sprintf("We couldn't connect to your Atlan Instance, please make sure `ATLAN_INSTANCE_URL` is set correctly.\n\n"+
		"Atlan Instance URL: %s\n\n%s", instanceURL, instanceURLFormat)
}
