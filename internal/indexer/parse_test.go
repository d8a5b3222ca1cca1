package indexer

import "testing"

func TestParseObjectID(t *testing.T) {
	got, err := ParseObjectID("0x2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0x0000000000000000000000000000000000000000000000000000000000000002" {
		t.Fatalf("padding mismatch: %s", got)
	}

	full := "0xEFE8B36D5B2E43728CC323298626B83177803521D195CFB11E15B910E892FDDF"
	got, err = ParseObjectID(full)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0xefe8b36d5b2e43728cc323298626b83177803521d195cfb11e15b910e892fddf" {
		t.Fatalf("normalization mismatch: %s", got)
	}
}

func TestParseObjectIDInvalid(t *testing.T) {
	for _, input := range []string{"", "0xzz", "0x" + string(make([]byte, 70))} {
		if _, err := ParseObjectID(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
