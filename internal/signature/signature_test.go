package signature

import (
	"crypto/ed25519"
	"testing"
)

type pkgMeta struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Hash    string `json:"hash"`
}

func TestCanonicalJSONIsKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2}
	b := map[string]any{"a": 2, "b": 1}
	ca, err := CanonicalJSON(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cb, err := CanonicalJSON(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ca) != string(cb) {
		t.Fatalf("expected identical canonical encodings, got %q vs %q", ca, cb)
	}
}

func TestCanonicalJSONSortsNestedObjects(t *testing.T) {
	meta := map[string]any{
		"outer": map[string]any{"z": 1, "a": 2},
		"tags":  []any{"x", "y"},
	}
	got, err := CanonicalJSON(meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"outer":{"a":2,"z":1},"tags":["x","y"]}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meta := pkgMeta{Name: "left-pad", Version: "1.0.0", Hash: "abc123"}
	msg, err := CanonicalJSON(meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sig := ed25519.Sign(priv, msg)

	err = Verify(meta, PackageSignature{Algorithm: "ed25519", PublicKey: pub, Signature: sig})
	if err != nil {
		t.Fatalf("expected valid signature to verify, got %v", err)
	}
}

func TestVerifyRejectsMutatedField(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meta := pkgMeta{Name: "left-pad", Version: "1.0.0", Hash: "abc123"}
	msg, err := CanonicalJSON(meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sig := ed25519.Sign(priv, msg)

	meta.Version = "2.0.0"
	err = Verify(meta, PackageSignature{Algorithm: "ed25519", PublicKey: pub, Signature: sig})
	if err != ErrVerificationFailed {
		t.Fatalf("expected verification failure on mutated field, got %v", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meta := pkgMeta{Name: "x", Version: "1", Hash: "h"}
	msg, _ := CanonicalJSON(meta)
	sig := ed25519.Sign(priv, msg)

	err = Verify(meta, PackageSignature{Algorithm: "ed25519", PublicKey: other, Signature: sig})
	if err != ErrVerificationFailed {
		t.Fatalf("expected failure with mismatched key, got %v", err)
	}
}

func TestVerifyRejectsUnknownAlgorithm(t *testing.T) {
	err := Verify(pkgMeta{}, PackageSignature{Algorithm: "rsa", PublicKey: make([]byte, 32), Signature: make([]byte, 64)})
	if err != ErrVerificationFailed {
		t.Fatalf("expected failure for unknown algorithm, got %v", err)
	}
}

func TestVerifyRejectsMalformedKeyLength(t *testing.T) {
	err := Verify(pkgMeta{}, PackageSignature{Algorithm: "ed25519", PublicKey: []byte{1, 2, 3}, Signature: make([]byte, 64)})
	if err != ErrVerificationFailed {
		t.Fatalf("expected failure for a short public key, got %v", err)
	}
}
