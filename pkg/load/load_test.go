package load

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dlps/feed/pkg/api"
)

const testConfig = `
staging:
  ingest: /ram/ingest
  preingest: /ram/preingest
  download: /staging/download
  zipfile: /ram/zipfile
  disk:
    ingest: /staging/ingest
repository:
  obj_dir: /sdr/obj
  link_dir: /sdr/link
daemon:
  release_states: [collated, punted]
dataset:
  threads: 4
premis:
  ingestion:
    type: ingestion
    detail: Moved to repository
    executor: DLPS
    executor_type: HathiTrust Institution ID
  zip_compression:
    type: compression
    detail: Zip file compression
    executor: DLPS
    executor_type: HathiTrust Institution ID
    tools: [ZIP]
xerces: /usr/bin/validate-xml
`

func loadTestConfig(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("could not write test configuration: %v", err)
	}
	config, err := Load(path)
	if err != nil {
		t.Fatalf("could not load test configuration: %v", err)
	}
	return config
}

func TestLoad(t *testing.T) {
	config := loadTestConfig(t)
	if diff := cmp.Diff(config.Staging.Ingest, "/ram/ingest"); diff != "" {
		t.Errorf("incorrect ingest root: %v", diff)
	}
	if diff := cmp.Diff(config.Staging.Disk.Ingest, "/staging/ingest"); diff != "" {
		t.Errorf("incorrect disk ingest root: %v", diff)
	}
	if config.Dataset.Threads != 4 {
		t.Errorf("expected 4 threads, got %d", config.Dataset.Threads)
	}
	expected := []api.Status{api.StatusCollated, api.StatusPunted}
	if diff := cmp.Diff(config.Daemon.ReleaseStates, expected); diff != "" {
		t.Errorf("incorrect release states: %v", diff)
	}
}

func TestGet(t *testing.T) {
	config := loadTestConfig(t)
	var testCases = []struct {
		name     string
		key      string
		expected interface{}
		defined  bool
	}{
		{
			name:     "nested key resolves",
			key:      "staging.download",
			expected: "/staging/download",
			defined:  true,
		},
		{
			name:     "deeply nested key resolves",
			key:      "staging.disk.ingest",
			expected: "/staging/ingest",
			defined:  true,
		},
		{
			name:    "missing key is undefined",
			key:     "staging.nonexistent",
			defined: false,
		},
		{
			name:    "descending through a scalar is undefined",
			key:     "xerces.child",
			defined: false,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			actual, defined := config.Get(testCase.key)
			if defined != testCase.defined {
				t.Fatalf("%s: expected defined=%t, got %t", testCase.name, testCase.defined, defined)
			}
			if defined && actual != testCase.expected {
				t.Errorf("%s: expected %v, got %v", testCase.name, testCase.expected, actual)
			}
		})
	}
}

func TestEventConfiguration(t *testing.T) {
	config := loadTestConfig(t)
	event := config.EventConfiguration("zip_compression")
	if event == nil {
		t.Fatal("expected a catalog entry for zip_compression")
	}
	if event.Type != "compression" {
		t.Errorf("expected type compression, got %s", event.Type)
	}
	if diff := cmp.Diff(event.Tools, []string{"ZIP"}); diff != "" {
		t.Errorf("incorrect tools: %v", diff)
	}
	if config.EventConfiguration("no_such_event") != nil {
		t.Error("expected no catalog entry for an unknown code")
	}
}

func TestIsReleaseState(t *testing.T) {
	config := loadTestConfig(t)
	if !config.IsReleaseState(api.StatusCollated) {
		t.Error("expected collated to be a release state")
	}
	if config.IsReleaseState(api.StatusReady) {
		t.Error("expected ready not to be a release state")
	}
}
