// Package signature verifies a fetched package's metadata before a
// client trusts it (spec.md §4.15). The registry's HTTP surface and
// its certificate authority (original_source/rust/registry-server's
// ca.rs) stay server-side and out of scope; what's needed here is the
// client-side primitive: recompute the canonical bytes a publisher
// signed and check the attached signature against them.
//
// Verification is a from-scratch Ed25519 built on the group operations
// filippo.io/edwards25519 exposes, rather than crypto/ed25519's whole
// sign+verify wrapper, the same dependency-light shape the registry's
// own CA favors for its signing primitives.
package signature

import (
	"bytes"
	"crypto/sha512"
	"encoding/json"
	"errors"
	"sort"

	"filippo.io/edwards25519"
)

// ErrVerificationFailed is returned verbatim on any verification
// failure — unknown algorithm, malformed key or signature material, or
// a genuine cryptographic mismatch — so callers never learn which.
var ErrVerificationFailed = errors.New("signature verification failed")

// PackageSignature is the detached signature attached to a fetched
// package's metadata record.
type PackageSignature struct {
	Algorithm string
	PublicKey []byte
	Signature []byte
}

// CanonicalJSON renders meta as deterministic, sorted-object-key JSON:
// the exact bytes a signer signs and a verifier recomputes. meta is
// round-tripped through json.Marshal/Unmarshal first so struct field
// order, tags, and omitempty behavior are normalized the same way for
// both the signer and the verifier regardless of which Go type each
// side happens to hold.
func CanonicalJSON(meta any) ([]byte, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return canonicalize(generic)
}

func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := canonicalize(val[k])
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			eb, err := canonicalize(e)
			if err != nil {
				return nil, err
			}
			buf.Write(eb)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(val)
	}
}

// Verify recomputes meta's canonical encoding and checks sig against it.
// Mutating any signed field after signing changes the canonical bytes
// and so must, and does, make a previously valid signature fail here.
func Verify(meta any, sig PackageSignature) error {
	if sig.Algorithm != "ed25519" || len(sig.PublicKey) != 32 || len(sig.Signature) != 64 {
		return ErrVerificationFailed
	}
	message, err := CanonicalJSON(meta)
	if err != nil {
		return ErrVerificationFailed
	}
	if !verifyEd25519(sig.PublicKey, message, sig.Signature) {
		return ErrVerificationFailed
	}
	return nil
}

// verifyEd25519 is the textbook check [S]B = R + [k]A restated as
// [S]B + [-k]A = R, computed with a single variable-time double
// scalar-base multiplication rather than two separate scalar mults.
func verifyEd25519(publicKey, message, sig []byte) bool {
	A, err := new(edwards25519.Point).SetBytes(publicKey)
	if err != nil {
		return false
	}

	h := sha512.New()
	h.Write(sig[:32])
	h.Write(publicKey)
	h.Write(message)
	digest := h.Sum(nil)

	k, err := edwards25519.NewScalar().SetUniformBytes(digest)
	if err != nil {
		return false
	}
	S, err := edwards25519.NewScalar().SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}

	minusA := new(edwards25519.Point).Negate(A)
	R := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(k, minusA, S)

	return bytes.Equal(sig[:32], R.Bytes())
}
