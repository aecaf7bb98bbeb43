package utils

import "testing"

func TestParsePort(t *testing.T) {
	if got, err := ParsePort(":2049"); err != nil || got != 2049 {
		t.Fatalf("ParsePort got=%d err=%v want=2049", got, err)
	}
	if got, err := ParsePort("0.0.0.0:111"); err != nil || got != 111 {
		t.Fatalf("ParsePort got=%d err=%v want=111", got, err)
	}
	for _, bad := range []string{"69", ":port", ":70000", "host:-1"} {
		if _, err := ParsePort(bad); err == nil {
			t.Fatalf("ParsePort(%q) expected error", bad)
		}
	}
}
