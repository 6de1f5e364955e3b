// Package signing defines the narrow cryptographic adapter interface used
// by the container encode/decode pipelines, and a concrete PKCS#7-family
// implementation. This is the entire extension surface for alternative
// signing backends, including a network-mode remote-PKI variant (out of
// scope here; see CallbackAdapter for its seam).
package signing

import (
	"context"
	"crypto"
	"crypto/x509"
	"fmt"

	"github.com/opencontainers/go-digest"
)

// ErrUntrustedChain indicates a signer's certificate chain does not
// terminate at any of the provided trusted roots.
var ErrUntrustedChain = fmt.Errorf("signing: signer certificate chain is untrusted")

// ErrBadSignature indicates the cryptographic signature itself is invalid.
var ErrBadSignature = fmt.Errorf("signing: signature verification failed")

// MalformedPayloadError indicates the signed payload bytes could not be
// parsed as a well-formed PKCS#7 SignedData structure.
type MalformedPayloadError struct {
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("signing: malformed signed payload: %s", e.Reason)
}

// SignFunc is an external signing callback: given a digest to sign, it
// returns the signed payload bytes. This is the seam a remote-PKI signing
// variant plugs into without this repository implementing the network
// protocol.
type SignFunc func(ctx context.Context, dgst digest.Digest) ([]byte, error)

// Adapter is the cryptographic adapter interface: digest, sign, and
// verify-against-roots, and nothing else. The container package depends
// only on this interface, never on a concrete crypto library.
type Adapter interface {
	// Digest computes the SHA-256 digest of bytes.
	Digest(data []byte) digest.Digest

	// Sign produces a signed payload whose encapsulated content is exactly
	// dgst, using the given signer certificate and private key.
	Sign(ctx context.Context, dgst digest.Digest, cert *x509.Certificate, key crypto.Signer) ([]byte, error)

	// Verify validates payload's signer certificate chain against roots
	// and, on success, returns the encapsulated digest. Errors are
	// ErrUntrustedChain, ErrBadSignature, or *MalformedPayloadError.
	Verify(payload []byte, roots []*x509.Certificate) (digest.Digest, error)
}
