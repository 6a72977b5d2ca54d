// Package load reads the global Feed configuration. The configuration is a
// hierarchical YAML document loaded once at startup from the path in the
// HTFEED_CONFIG environment variable; typed sections cover the keys the
// core consumes directly and the raw tree backs the layered resolver's
// global fallback.
package load

import (
	"fmt"
	"os"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/dlps/feed/pkg/api"
)

// EnvVar names the environment variable holding the configuration path.
const EnvVar = "HTFEED_CONFIG"

// StagingConfig holds the staging filesystem roots.
type StagingConfig struct {
	Ingest    string `json:"ingest"`
	Preingest string `json:"preingest"`
	Download  string `json:"download"`
	Fetch     string `json:"fetch"`
	Zipfile   string `json:"zipfile"`
	Disk      struct {
		Ingest    string `json:"ingest"`
		Preingest string `json:"preingest"`
	} `json:"disk"`
}

// RepositoryConfig holds the object store roots. When LinkDir differs from
// ObjDir, a symlink tree under LinkDir mirrors the canonical pairtree.
type RepositoryConfig struct {
	ObjDir  string `json:"obj_dir"`
	LinkDir string `json:"link_dir"`
}

// DaemonConfig holds runner-level settings.
type DaemonConfig struct {
	ReleaseStates []api.Status `json:"release_states"`
}

// DatasetConfig sizes the worker pool.
type DatasetConfig struct {
	Threads int `json:"threads"`
}

// HandleConfig holds handle service settings; the SQL emitter itself is an
// external collaborator.
type HandleConfig struct {
	RootAdmin  string `json:"root_admin"`
	LocalAdmin string `json:"local_admin"`
	Database   struct {
		Datasource string `json:"datasource"`
		Username   string `json:"username"`
		Password   string `json:"password"`
	} `json:"database"`
}

// JiraConfig holds ticketing settings consumed by the external
// reconciliation script; carried here so one document configures the whole
// deployment.
type JiraConfig struct {
	WSDL     string `json:"wsdl"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// DatabaseConfig points the core at the feed database.
type DatabaseConfig struct {
	Datasource string `json:"datasource"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// Config is the parsed global configuration.
type Config struct {
	Staging    StagingConfig    `json:"staging"`
	Repository RepositoryConfig `json:"repository"`
	Daemon     DaemonConfig     `json:"daemon"`
	Dataset    DatasetConfig    `json:"dataset"`

	// Premis is the global PREMIS event catalog, keyed by event code.
	Premis map[string]*api.EventConfiguration `json:"premis"`

	// Xerces is the external XML validator invocation; the first token is
	// the executable, the rest are leading arguments.
	Xerces string `json:"xerces"`

	Handle      HandleConfig   `json:"handle"`
	Jira        JiraConfig     `json:"jira"`
	Database    DatabaseConfig `json:"database"`
	RepoURLBase string         `json:"repo_url_base"`

	// RecordService is the base URL of the bibliographic record service
	// consulted when a SIP carries no MARC metadata of its own.
	RecordService string `json:"record_service"`

	raw map[string]interface{}
}

// Load reads and parses the configuration document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read configuration at %s", path)
	}
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "could not parse configuration at %s", path)
	}
	if err := yaml.Unmarshal(data, &config.raw); err != nil {
		return nil, errors.Wrapf(err, "could not parse configuration tree at %s", path)
	}
	if config.Dataset.Threads == 0 {
		config.Dataset.Threads = 1
	}
	if len(config.Daemon.ReleaseStates) == 0 {
		config.Daemon.ReleaseStates = []api.Status{api.StatusCollated, api.StatusPunted}
	}
	return config, nil
}

// FromEnvironment loads the configuration from the path in $HTFEED_CONFIG.
func FromEnvironment() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s is not set", EnvVar)
	}
	return Load(path)
}

// Get resolves a dotted key path (e.g. "staging.ingest") against the raw
// configuration tree, reporting whether the key is defined.
func (c *Config) Get(key string) (interface{}, bool) {
	var node interface{} = c.raw
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// IsReleaseState reports whether a status is terminal for the scheduler.
func (c *Config) IsReleaseState(status api.Status) bool {
	for _, s := range c.Daemon.ReleaseStates {
		if s == status {
			return true
		}
	}
	return false
}

// EventConfiguration returns the catalog entry for an event code, or nil.
func (c *Config) EventConfiguration(code string) *api.EventConfiguration {
	if c.Premis == nil {
		return nil
	}
	return c.Premis[code]
}
