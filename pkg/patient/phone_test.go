package patient

import "testing"

func TestValidPhone(t *testing.T) {
	accepted := []string{
		"+919876543210",
		"9876543210",
		"919876543210",
		"91 9876543210",
		"0 9876543210",
		"560001 123456",
		"56000-123456",
	}
	for _, value := range accepted {
		if !ValidPhone(value) {
			t.Fatalf("expected %q to be accepted", value)
		}
	}

	rejected := []string{
		"12345",
		"98765",
		"abcdefghij",
		"+91-9876543210x",
		"",
	}
	for _, value := range rejected {
		if ValidPhone(value) {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}
