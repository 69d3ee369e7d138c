// Package config handles configuration loading and management
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Release sources
const (
	SourceJira        = "jira"
	SourceGitHub      = "github"
	SourceCloudDeploy = "clouddeploy"
)

// Config holds the application configuration
type Config struct {
	// Project is the Jira project key searched for bugs, and the project whose versions
	// are read when releases come from Jira. The GitHub and Cloud Deploy sources use
	// their own repo and project settings instead.
	Project       string `yaml:"project"`
	ReleaseSource string `yaml:"release_source"`
	LogLevel      string `yaml:"log_level"`

	Jira        JiraConfig        `yaml:"jira"`
	GitHub      GitHubConfig      `yaml:"github"`
	CloudDeploy CloudDeployConfig `yaml:"clouddeploy"`
	Cache       CacheConfig       `yaml:"cache"`
}

// JiraConfig configures the Jira REST client
type JiraConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Email       string        `yaml:"email"`
	APIToken    string        `yaml:"api_token"`
	BearerToken string        `yaml:"bearer_token"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxResults  int           `yaml:"max_results"`
	Priorities  []string      `yaml:"priorities"`
	DoneStatus  string        `yaml:"done_status"`
}

// GitHubConfig configures the GitHub releases source
type GitHubConfig struct {
	Token string `yaml:"token"`
	Repo  string `yaml:"repo"` // owner/repo
}

// CloudDeployConfig configures the Google Cloud Deploy releases source
type CloudDeployConfig struct {
	ProjectID      string `yaml:"project_id"`
	Region         string `yaml:"region"`
	PipelineFilter string `yaml:"pipeline_filter"`
}

// CacheConfig configures the upstream response cache
type CacheConfig struct {
	Dir      string        `yaml:"dir"`
	TTL      time.Duration `yaml:"ttl"`
	Disabled bool          `yaml:"disabled"`
}

// Default returns the configuration used before any file or environment is applied
func Default() *Config {
	return &Config{
		ReleaseSource: SourceJira,
		LogLevel:      "info",
		Jira: JiraConfig{
			Timeout:    30 * time.Second,
			MaxResults: 100,
			Priorities: []string{"Highest", "High"},
			DoneStatus: "Done",
		},
		CloudDeploy: CloudDeployConfig{
			Region: "us-east4",
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
	}
}

// Load reads configuration from the .env file, an optional YAML file at path, and
// environment variables, in increasing order of precedence
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if the file doesn't exist
		if !os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "error loading .env file")
		}
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Project = getEnv("DORA_PROJECT", c.Project)
	c.ReleaseSource = strings.ToLower(getEnv("DORA_RELEASE_SOURCE", c.ReleaseSource))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Jira.BaseURL = getEnv("JIRA_BASE_URL", c.Jira.BaseURL)
	c.Jira.Email = getEnv("JIRA_EMAIL", c.Jira.Email)
	c.Jira.APIToken = getEnv("JIRA_API_TOKEN", c.Jira.APIToken)
	c.Jira.BearerToken = getEnv("JIRA_BEARER_TOKEN", c.Jira.BearerToken)
	c.Jira.DoneStatus = getEnv("JIRA_DONE_STATUS", c.Jira.DoneStatus)
	if v := os.Getenv("JIRA_PRIORITIES"); v != "" {
		c.Jira.Priorities = splitList(v)
	}

	c.GitHub.Token = getEnv("GITHUB_TOKEN", c.GitHub.Token)
	c.GitHub.Repo = getEnv("GITHUB_REPO", c.GitHub.Repo)

	c.CloudDeploy.ProjectID = getEnv("CLOUDDEPLOY_PROJECT", c.CloudDeploy.ProjectID)
	c.CloudDeploy.Region = getEnv("CLOUDDEPLOY_REGION", c.CloudDeploy.Region)
	c.CloudDeploy.PipelineFilter = getEnv("CLOUDDEPLOY_PIPELINE_FILTER", c.CloudDeploy.PipelineFilter)

	c.Cache.Dir = getEnv("DORA_CACHE_DIR", c.Cache.Dir)

	var err error
	if c.Jira.Timeout, err = getDuration("JIRA_TIMEOUT", c.Jira.Timeout); err != nil {
		return err
	}
	if c.Cache.TTL, err = getDuration("DORA_CACHE_TTL", c.Cache.TTL); err != nil {
		return err
	}
	if c.Jira.MaxResults, err = getInt("JIRA_MAX_RESULTS", c.Jira.MaxResults); err != nil {
		return err
	}
	if c.Cache.Disabled, err = getBool("DORA_CACHE_DISABLED", c.Cache.Disabled); err != nil {
		return err
	}

	return nil
}

// Validate checks that the settings needed by the selected release source and the
// Jira bug search are present
func (c *Config) Validate() error {
	if c.Project == "" {
		return goerr.New("project is required (set DORA_PROJECT or --project)")
	}
	if c.Jira.BaseURL == "" {
		return goerr.New("jira base URL is required (set JIRA_BASE_URL)")
	}
	if c.Jira.BearerToken == "" && (c.Jira.Email == "" || c.Jira.APIToken == "") {
		return goerr.New("jira credentials are required (set JIRA_EMAIL and JIRA_API_TOKEN, or JIRA_BEARER_TOKEN)")
	}

	switch c.ReleaseSource {
	case SourceJira:
	case SourceGitHub:
		if c.GitHub.Token == "" {
			return goerr.New("GITHUB_TOKEN is required for the github release source")
		}
		if c.GitHub.Repo == "" {
			return goerr.New("GITHUB_REPO is required for the github release source")
		}
	case SourceCloudDeploy:
		if c.CloudDeploy.ProjectID == "" {
			return goerr.New("CLOUDDEPLOY_PROJECT is required for the clouddeploy release source")
		}
	default:
		return goerr.New("unknown release source", goerr.V("release_source", c.ReleaseSource))
	}

	return nil
}

// ReleaseProject returns the project reference passed to the release source.
func (c *Config) ReleaseProject() string {
	switch c.ReleaseSource {
	case SourceGitHub:
		return c.GitHub.Repo
	case SourceCloudDeploy:
		return c.CloudDeploy.ProjectID
	default:
		return c.Project
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid duration", goerr.V("key", key), goerr.V("value", value))
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid integer", goerr.V("key", key), goerr.V("value", value))
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, goerr.Wrap(err, "invalid boolean", goerr.V("key", key), goerr.V("value", value))
	}
	return b, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "********"
}

func orUnset(value string) string {
	if value == "" {
		return "(not set)"
	}
	return value
}

func (c *Config) String() string {
	cacheDisplay := c.Cache.Dir
	if cacheDisplay == "" {
		cacheDisplay = "(user cache dir)"
	}
	if c.Cache.Disabled {
		cacheDisplay = "(disabled)"
	}

	return fmt.Sprintf(`Configuration:
  Project:            %s
  Release Source:     %s
  Log Level:          %s

Jira:
  Base URL:           %s
  Email:              %s
  API Token:          %s
  Bearer Token:       %s
  Timeout:            %s
  Max Results:        %d
  Priorities:         %s
  Done Status:        %s

GitHub:
  Repo:               %s
  Token:              %s

Cloud Deploy:
  Project:            %s
  Region:             %s
  Pipeline Filter:    %s

Cache:
  Location:           %s
  TTL:                %s`,
		orUnset(c.Project), c.ReleaseSource, c.LogLevel,
		orUnset(c.Jira.BaseURL), orUnset(c.Jira.Email), mask(c.Jira.APIToken), mask(c.Jira.BearerToken),
		c.Jira.Timeout, c.Jira.MaxResults, strings.Join(c.Jira.Priorities, ", "), c.Jira.DoneStatus,
		orUnset(c.GitHub.Repo), mask(c.GitHub.Token),
		orUnset(c.CloudDeploy.ProjectID), c.CloudDeploy.Region, orUnset(c.CloudDeploy.PipelineFilter),
		cacheDisplay, c.Cache.TTL)
}
