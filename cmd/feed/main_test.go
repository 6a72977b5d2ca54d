package main

import (
	"testing"
	"time"
)

func TestGatherOptions(t *testing.T) {
	var testCases = []struct {
		name     string
		args     []string
		expected options
	}{
		{
			name:     "defaults",
			args:     nil,
			expected: options{interval: time.Minute, batchSize: 100, logLevel: "info"},
		},
		{
			name:     "version banner",
			args:     []string{"--version"},
			expected: options{version: true, interval: time.Minute, batchSize: 100, logLevel: "info"},
		},
		{
			name:     "plugin introspection",
			args:     []string{"--Version"},
			expected: options{introspect: true, interval: time.Minute, batchSize: 100, logLevel: "info"},
		},
		{
			name:     "introspection alias",
			args:     []string{"--introspect"},
			expected: options{introspect: true, interval: time.Minute, batchSize: 100, logLevel: "info"},
		},
		{
			name:     "scheduling overrides",
			args:     []string{"--once", "--interval=30s", "--batch-size=5", "--log-level=debug"},
			expected: options{once: true, interval: 30 * time.Second, batchSize: 5, logLevel: "debug"},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if actual := gatherOptions(testCase.args); *actual != testCase.expected {
				t.Errorf("got %+v, expected %+v", *actual, testCase.expected)
			}
		})
	}
}
