package config

import (
	"reflect"
	"testing"
)

func TestParseRPCURLs(t *testing.T) {
	urls, err := ParseRPCURLs([]string{
		"1=https://eth.example.com",
		" 137 = https://polygon.example.com ",
	})
	if err != nil {
		t.Fatalf("ParseRPCURLs: %v", err)
	}
	want := map[uint64]string{
		1:   "https://eth.example.com",
		137: "https://polygon.example.com",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
}

func TestParseRPCURLsRejectsBadEntries(t *testing.T) {
	cases := []string{
		"no-separator",
		"abc=https://eth.example.com",
		"1=",
		"1=   ",
	}
	for _, entry := range cases {
		if _, err := ParseRPCURLs([]string{entry}); err == nil {
			t.Fatalf("entry %q should fail", entry)
		}
	}
}

func TestParseRPCURLsEmptyInput(t *testing.T) {
	urls, err := ParseRPCURLs(nil)
	if err != nil {
		t.Fatalf("ParseRPCURLs: %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("urls = %v, want empty", urls)
	}
}

func TestSplitAndClean(t *testing.T) {
	got := splitAndClean(" a, b ,, c ")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitAndClean = %v, want %v", got, want)
	}
	if splitAndClean("") != nil {
		t.Fatalf("empty input should be nil")
	}
}
