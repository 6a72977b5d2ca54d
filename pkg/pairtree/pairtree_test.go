package pairtree

import (
	"path/filepath"
	"testing"
)

func TestEscape(t *testing.T) {
	var testCases = []struct {
		name     string
		id       string
		expected string
	}{
		{
			name:     "plain barcode passes through",
			id:       "39015012345678",
			expected: "39015012345678",
		},
		{
			name:     "ark with structural characters",
			id:       "ark:/13960/t6m042c6x",
			expected: "ark+=13960=t6m042c6x",
		},
		{
			name:     "reserved characters hex encode",
			id:       `what "about this`,
			expected: "what^20^22about^20this",
		},
		{
			name:     "dot substitutes",
			id:       "uc1.b312920",
			expected: "uc1,b312920",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if actual := Escape(testCase.id); actual != testCase.expected {
				t.Errorf("%s: expected %q, got %q", testCase.name, testCase.expected, actual)
			}
		})
	}
}

func TestPPath(t *testing.T) {
	var testCases = []struct {
		id       string
		expected string
	}{
		{id: "39002s", expected: filepath.Join("39", "00", "2s")},
		{id: "abc", expected: filepath.Join("ab", "c")},
		{id: "ark:/13960", expected: filepath.Join("ar", "k+", "=1", "39", "60")},
	}
	for _, testCase := range testCases {
		t.Run(testCase.id, func(t *testing.T) {
			if actual := PPath(testCase.id); actual != testCase.expected {
				t.Errorf("expected %q, got %q", testCase.expected, actual)
			}
		})
	}
}

func TestObjectDir(t *testing.T) {
	expected := filepath.Join("/sdr", "yale", "pairtree_root", "39", "00", "2X", "39002X")
	if actual := ObjectDir("/sdr", "yale", "39002X"); actual != expected {
		t.Errorf("expected %q, got %q", expected, actual)
	}
}
