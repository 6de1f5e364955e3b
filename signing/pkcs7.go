package signing

import (
	"context"
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/digitorus/pkcs7"
	"github.com/opencontainers/go-digest"
)

// PKCS7Adapter implements Adapter using a PKCS#7-family SignedData
// construction with SHA-256 digests. The encapsulated content of the
// SignedData is exactly the covered-region digest bytes — never the
// covered region itself — so the signed payload stays small regardless of
// inner-package size.
type PKCS7Adapter struct{}

var _ Adapter = PKCS7Adapter{}

// Digest computes the SHA-256 digest of data.
func (PKCS7Adapter) Digest(data []byte) digest.Digest {
	sum := sha256.Sum256(data)
	return digest.NewDigestFromBytes(digest.SHA256, sum[:])
}

// Sign builds a PKCS#7 SignedData whose encapsulated (attached) content is
// dgst's raw bytes, signed by cert/key.
func (PKCS7Adapter) Sign(ctx context.Context, dgst digest.Digest, cert *x509.Certificate, key crypto.Signer) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sd, err := pkcs7.NewSignedData(digestBytes(dgst))
	if err != nil {
		return nil, fmt.Errorf("signing: initializing signed data: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("signing: adding signer: %w", err)
	}
	return sd.Finish()
}

// Verify parses payload as PKCS#7 SignedData, checks the signer's
// certificate chain against roots, verifies the signature, and returns the
// encapsulated digest.
func (PKCS7Adapter) Verify(payload []byte, roots []*x509.Certificate) (digest.Digest, error) {
	p7, err := pkcs7.Parse(payload)
	if err != nil {
		return "", &MalformedPayloadError{Reason: err.Error()}
	}

	signer := p7.GetOnlySigner()
	if signer == nil {
		return "", &MalformedPayloadError{Reason: "no signer certificate embedded in payload"}
	}

	pool := x509.NewCertPool()
	for _, r := range roots {
		pool.AddCert(r)
	}
	if _, err := signer.Verify(x509.VerifyOptions{Roots: pool, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny}}); err != nil {
		return "", ErrUntrustedChain
	}

	if err := p7.Verify(); err != nil {
		return "", ErrBadSignature
	}

	return digest.NewDigestFromBytes(digest.SHA256, p7.Content), nil
}

func digestBytes(d digest.Digest) []byte {
	// d is a sha256 digest.Digest (from Digest() above or the container
	// package's own SHA-256 helpers), which carries valid hex; a decode
	// failure here would mean the digest was fabricated elsewhere.
	b, _ := hex.DecodeString(d.Encoded())
	return b
}
