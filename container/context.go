package container

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"sort"

	"github.com/LeeLiangmin/scrate/signing"
)

// SignatureSlot is a pending signature configured on the encode side: a
// covered-region type, the signer's certificate, and a means to produce the
// signed payload — either a local crypto.Signer or an external callback
// (the remote-PKI seam).
type SignatureSlot struct {
	Type       SigType
	SignerCert *x509.Certificate
	Key        crypto.Signer
	// Callback, if set, is used instead of Key — this is the seam a
	// remote-PKI signing variant plugs into (out of scope here).
	Callback signing.SignFunc
}

// VerifiedSignature is a decode-side result: a signature that verified
// successfully against the Context's trusted roots.
type VerifiedSignature struct {
	Type       SigType
	SignerCert []byte
}

// Context is the in-memory package representation: package info, the
// dependency table, the opaque inner package bytes, and the signatures
// covering them. It is immutable after construction except for
// AddSignature, and is consumed by Encode or produced by Decode.
type Context struct {
	Info         PackageInfo
	Dependencies []Dependency
	InnerPackage []byte

	// Signatures holds pending signature slots (encode side).
	Signatures []SignatureSlot

	// Roots holds trusted root certificates (decode side input).
	Roots []*x509.Certificate

	// Verified holds the signatures that verified successfully (decode
	// side output, populated by Decode step 8).
	Verified []VerifiedSignature

	// Listener receives progress events from Encode/Decode. Nil is
	// equivalent to a no-op listener.
	Listener Listener
}

func (c *Context) listener() Listener {
	if c.Listener == nil {
		return noopListener
	}
	return c.Listener
}

// AddSignature configures an additional pending signature slot for the next
// Encode call.
func (c *Context) AddSignature(slot SignatureSlot) {
	c.Signatures = append(c.Signatures, slot)
}

// Equal compares two contexts for round-trip equivalence: package-info,
// dependency list, inner-package bytes, and the set of signature types must
// match. The signature types compared are the receiver's configured
// Signatures (encode side) against other's Verified signatures (decode
// side), so the call is orig.Equal(decoded). Signature payload bytes are
// deliberately excluded, since PKCS#7 signing may be non-deterministic.
func (c *Context) Equal(other *Context) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Info.Name != other.Info.Name ||
		c.Info.Version != other.Info.Version ||
		c.Info.License != other.Info.License {
		return false
	}
	if !stringsEqual(c.Info.Authors, other.Info.Authors) {
		return false
	}
	if len(c.Dependencies) != len(other.Dependencies) {
		return false
	}
	for i := range c.Dependencies {
		if !dependencyEqual(c.Dependencies[i], other.Dependencies[i]) {
			return false
		}
	}
	if !bytes.Equal(c.InnerPackage, other.InnerPackage) {
		return false
	}
	return sigTypeSetEqual(c.signatureTypes(), other.verifiedTypes())
}

func (c *Context) signatureTypes() []SigType {
	types := make([]SigType, 0, len(c.Signatures))
	for _, s := range c.Signatures {
		types = append(types, s.Type)
	}
	return types
}

func (c *Context) verifiedTypes() []SigType {
	types := make([]SigType, 0, len(c.Verified))
	for _, v := range c.Verified {
		types = append(types, v.Type)
	}
	return types
}

func sigTypeSetEqual(a, b []SigType) bool {
	if len(a) != len(b) {
		return false
	}
	ac := append([]SigType(nil), a...)
	bc := append([]SigType(nil), b...)
	sort.Slice(ac, func(i, j int) bool { return ac[i] < ac[j] })
	sort.Slice(bc, func(i, j int) bool { return bc[i] < bc[j] })
	for i := range ac {
		if ac[i] != bc[i] {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dependencyEqual(a, b Dependency) bool {
	return a.Name == b.Name &&
		a.VersionReq == b.VersionReq &&
		a.Source == b.Source &&
		a.HasPlatform == b.HasPlatform &&
		a.Platform == b.Platform
}
