package ciutil

import "os"

// Environment variables used to detect a CI run.
const (
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"
	EnvJenkinsURL    = "JENKINS_URL"
	EnvCircleCI      = "CIRCLECI"
)

// metadataKeys maps provider variables to log attribute names.
var metadataKeys = map[string]string{
	"GITHUB_RUN_ID":       "ci_run_id",
	"GITHUB_SHA":          "ci_commit",
	"GITHUB_REF_NAME":     "ci_branch",
	"GITHUB_WORKFLOW":     "ci_workflow",
	"CI_PIPELINE_ID":      "ci_pipeline_id",
	"CI_COMMIT_SHORT_SHA": "ci_commit",
	"BUILD_NUMBER":        "ci_build",
}

// IsCI reports whether the process runs under a known CI provider.
func IsCI() bool {
	for _, key := range []string{EnvCI, EnvGitHubActions, EnvGitLabCI, EnvJenkinsURL, EnvCircleCI} {
		if v := os.Getenv(key); v != "" && v != "false" {
			return true
		}
	}
	return false
}

// Metadata returns the CI attributes that are set, keyed by log attribute
// name. It always contains "ci".
func Metadata() map[string]string {
	out := map[string]string{"ci": "true"}
	for env, attr := range metadataKeys {
		if v := os.Getenv(env); v != "" {
			out[attr] = v
		}
	}
	return out
}
