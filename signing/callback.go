package signing

import (
	"context"
	"crypto"
	"crypto/x509"
	"fmt"

	"github.com/opencontainers/go-digest"
)

// CallbackAdapter delegates Sign to an externally supplied SignFunc instead
// of a local crypto.Signer, and delegates Verify to an embedded Adapter
// (normally PKCS7Adapter, since the wire format of the signed payload is
// unchanged regardless of where the private key lives). This is the
// concrete seam a remote-PKI signing variant plugs into: the core never
// needs to know whether the key was local or fetched over the network.
type CallbackAdapter struct {
	Verifier Adapter
	SignFn   SignFunc
}

var _ Adapter = CallbackAdapter{}

// NewCallbackAdapter returns a CallbackAdapter that verifies using
// PKCS7Adapter and signs using fn.
func NewCallbackAdapter(fn SignFunc) CallbackAdapter {
	return CallbackAdapter{Verifier: PKCS7Adapter{}, SignFn: fn}
}

// Digest delegates to the embedded verifier's digest function.
func (a CallbackAdapter) Digest(data []byte) digest.Digest {
	return a.Verifier.Digest(data)
}

// Sign ignores cert/key and calls the configured callback instead.
func (a CallbackAdapter) Sign(ctx context.Context, dgst digest.Digest, _ *x509.Certificate, _ crypto.Signer) ([]byte, error) {
	if a.SignFn == nil {
		return nil, fmt.Errorf("signing: callback adapter has no SignFunc configured")
	}
	return a.SignFn(ctx, dgst)
}

// Verify delegates to the embedded verifier.
func (a CallbackAdapter) Verify(payload []byte, roots []*x509.Certificate) (digest.Digest, error) {
	return a.Verifier.Verify(payload, roots)
}
