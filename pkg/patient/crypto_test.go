package patient

import "testing"

func TestCipherRoundTrip(t *testing.T) {
	c := NewCipher("unit-test-secret")

	for _, value := range []string{"9876543210", "+919876543210", "x", ""} {
		encrypted, err := c.Encrypt(value)
		if err != nil {
			t.Fatalf("encrypt %q: %v", value, err)
		}
		if encrypted == value {
			t.Fatalf("ciphertext equals plaintext for %q", value)
		}
		decrypted, err := c.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("decrypt %q: %v", value, err)
		}
		if decrypted != value {
			t.Fatalf("round trip of %q gave %q", value, decrypted)
		}
	}
}

func TestCipherCiphertextsNotDeterministic(t *testing.T) {
	c := NewCipher("unit-test-secret")

	first, err := c.Encrypt("9876543210")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	second, err := c.Encrypt("9876543210")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct ciphertexts for repeated encryption")
	}
}

func TestCipherDigest(t *testing.T) {
	c := NewCipher("unit-test-secret")

	if c.Digest("9876543210") != c.Digest("9876543210") {
		t.Fatal("digest must be deterministic")
	}
	if c.Digest("9876543210") == c.Digest("9876543211") {
		t.Fatal("digest collided for different values")
	}
	if c.Digest("9876543210") == NewCipher("other-secret").Digest("9876543210") {
		t.Fatal("digest must depend on the secret")
	}
}

func TestCipherRejectsCorruptCiphertext(t *testing.T) {
	c := NewCipher("unit-test-secret")

	if _, err := c.Decrypt("not hex"); err == nil {
		t.Fatal("expected error for non-hex input")
	}
	if _, err := c.Decrypt("abcd"); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}
