package container

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"math/big"
	"testing"
	"time"
)

// genTestChain returns a leaf certificate/key signed by a freshly minted
// root CA, for tests that need a realistic (if tiny) X.509 chain.
func genTestChain(t *testing.T) (leafCert *x509.Certificate, leafKey crypto.Signer, rootCert *x509.Certificate) {
	t.Helper()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating root key: %v", err)
	}
	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test root"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("creating root cert: %v", err)
	}
	rootCert, err = x509.ParseCertificate(rootDER)
	if err != nil {
		t.Fatalf("parsing root cert: %v", err)
	}

	leafKeyRaw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating leaf key: %v", err)
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "test leaf"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, rootCert, &leafKeyRaw.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("creating leaf cert: %v", err)
	}
	leafCert, err = x509.ParseCertificate(leafDER)
	if err != nil {
		t.Fatalf("parsing leaf cert: %v", err)
	}

	return leafCert, leafKeyRaw, rootCert
}

func newTestContext() *Context {
	return &Context{
		Info: PackageInfo{
			Name:    "demo",
			Version: "0.1.0",
			License: "MIT",
			Authors: []string{"a@b"},
		},
		Dependencies: []Dependency{
			{Name: "lib_a", VersionReq: "^1.0", Source: DependencySource{Kind: SourceRegistryDefault}},
			{
				Name:       "lib_b",
				VersionReq: "0.2",
				Source: DependencySource{
					Kind:   SourceGit,
					GitURL: "https://example.com/lib_b.git",
					GitRev: "main",
					HasRev: true,
				},
				HasPlatform: true,
				Platform:    "cfg(unix)",
			},
		},
		InnerPackage: []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
}

// refingerprint recomputes and overwrites buf's trailing fingerprint in
// place, for tests that tamper with a signed buffer and need to simulate an
// attacker who recomputed the fingerprint after tampering.
func refingerprint(buf []byte) {
	fp := plainDigest(buf[:len(buf)-FingerprintSize])
	raw, _ := hex.DecodeString(fp.Encoded())
	copy(buf[len(buf)-FingerprintSize:], raw)
}
