package passwords_test

import (
	"strings"
	"testing"

	"github.com/combinefoundation/portal/internal/app/system/passwords"
)

func TestHashCompare(t *testing.T) {
	hash, err := passwords.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !passwords.Compare(hash, "correct horse battery") {
		t.Error("Compare should accept the original password")
	}
	if passwords.Compare(hash, "wrong password") {
		t.Error("Compare should reject a wrong password")
	}
	if passwords.Compare("", "anything") {
		t.Error("Compare should reject an empty hash")
	}
}

func TestTemporary(t *testing.T) {
	p := passwords.Temporary(12)
	if len(p) != 12 {
		t.Errorf("length = %d, want 12", len(p))
	}
	for _, c := range p {
		if strings.ContainsRune("0O1lI", c) {
			t.Errorf("temporary password contains look-alike char %q: %s", c, p)
		}
	}

	if got := passwords.Temporary(0); len(got) != 12 {
		t.Errorf("non-positive n should fall back to 12 chars, got %d", len(got))
	}

	if passwords.Temporary(16) == passwords.Temporary(16) {
		t.Error("two temporary passwords should not collide")
	}
}
