package main

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/LeeLiangmin/scrate/container"
	"github.com/LeeLiangmin/scrate/manifest"
	"github.com/LeeLiangmin/scrate/signing"
)

// arrayFlags collects a repeated -flag into a slice, mirroring the
// teacher's CLI convention for repeated arguments.
type arrayFlags []string

func (f *arrayFlags) String() string { return strings.Join(*f, ", ") }
func (f *arrayFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

// config is the optional TOML configuration file loaded via -config. CLI
// flags always take precedence over a matching config value; a config
// value only fills in a flag the caller left at its zero value.
type config struct {
	Manifest string   `toml:"manifest"`
	Input    string   `toml:"input"`
	Cert     string   `toml:"cert"`
	Key      string   `toml:"key"`
	Out      string   `toml:"out"`
	Roots    []string `toml:"roots"`
}

func loadConfig(path string) (config, error) {
	var c config
	if path == "" {
		return c, nil
	}
	_, err := toml.DecodeFile(path, &c)
	return c, err
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encode":
		runEncode(os.Args[2:])
	case "decode":
		runDecode(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: scrate <command> [flags]")
	fmt.Println("\nCommands:")
	fmt.Println("  encode   Build a signed package container from a manifest")
	fmt.Println("  decode   Verify and unpack a signed package container")
}

func runEncode(args []string) {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	var configPath, manifestPath, inputPath, certPath, keyPath, outPath string
	fs.StringVar(&configPath, "config", "", "Path to a TOML config file providing defaults")
	fs.StringVar(&manifestPath, "manifest", "", "Path to the package manifest")
	fs.StringVar(&inputPath, "input", "", "Path to the inner package payload")
	fs.StringVar(&certPath, "cert", "", "Path to the signer certificate (PEM)")
	fs.StringVar(&keyPath, "key", "", "Path to the signer private key (PEM)")
	fs.StringVar(&outPath, "out", "", "Path to write the signed container")
	fs.Parse(args)

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	manifestPath = firstNonEmpty(manifestPath, cfg.Manifest)
	inputPath = firstNonEmpty(inputPath, cfg.Input)
	certPath = firstNonEmpty(certPath, cfg.Cert)
	keyPath = firstNonEmpty(keyPath, cfg.Key)
	outPath = firstNonEmpty(outPath, cfg.Out)

	if manifestPath == "" || inputPath == "" || certPath == "" || keyPath == "" || outPath == "" {
		log.Fatal("-manifest, -input, -cert, -key and -out are all required (directly or via -config)")
	}

	listener := func(e fmt.Stringer) { log.Println(e.String()) }

	man, err := manifest.Load(manifestPath, manifest.Listener(listener))
	if err != nil {
		log.Fatalf("loading manifest: %v", err)
	}

	inner, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatalf("reading input package: %v", err)
	}

	cert, key, err := loadSigner(certPath, keyPath)
	if err != nil {
		log.Fatalf("loading signer: %v", err)
	}

	pctx := man.ToContext(inner)
	pctx.Listener = container.Listener(listener)
	pctx.AddSignature(container.SignatureSlot{Type: container.SigTypeFile, SignerCert: cert, Key: key})
	pctx.AddSignature(container.SignatureSlot{Type: container.SigTypeCratebin, SignerCert: cert, Key: key})

	buf, err := container.Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		log.Fatalf("encoding: %v", err)
	}

	if err := os.WriteFile(outPath, buf, 0644); err != nil {
		log.Fatalf("writing %s: %v", outPath, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", outPath, len(buf))
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	var configPath, inPath, outDir string
	var roots arrayFlags
	fs.StringVar(&configPath, "config", "", "Path to a TOML config file providing defaults")
	fs.StringVar(&inPath, "in", "", "Path to the signed container")
	fs.StringVar(&outDir, "out-dir", ".", "Directory to write the recovered package and metadata into")
	fs.Var(&roots, "root", "Path to a trusted root certificate (PEM), repeatable")
	fs.Parse(args)

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	inPath = firstNonEmpty(inPath, cfg.Input)
	if len(roots) == 0 {
		roots = cfg.Roots
	}
	outDirSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "out-dir" {
			outDirSet = true
		}
	})
	if cfg.Out != "" && !outDirSet {
		outDir = cfg.Out
	}

	if inPath == "" || len(roots) == 0 {
		log.Fatal("-in and at least one -root are required (directly or via -config)")
	}

	buf, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatalf("reading %s: %v", inPath, err)
	}

	rootCerts, err := loadRoots(roots)
	if err != nil {
		log.Fatalf("loading roots: %v", err)
	}

	listener := func(e fmt.Stringer) { log.Println(e.String()) }

	pctx, err := container.Decode(context.Background(), buf, signing.PKCS7Adapter{}, rootCerts, container.Listener(listener))
	if err != nil {
		log.Fatalf("decoding %s: %v", inPath, err)
	}

	base := fmt.Sprintf("%s-%s", pctx.Info.Name, pctx.Info.Version)
	packagePath := filepath.Join(outDir, base+".bin")
	if err := os.WriteFile(packagePath, pctx.InnerPackage, 0644); err != nil {
		log.Fatalf("writing %s: %v", packagePath, err)
	}

	metadataPath := filepath.Join(outDir, base+"-metadata.txt")
	if err := os.WriteFile(metadataPath, []byte(formatMetadata(pctx)), 0644); err != nil {
		log.Fatalf("writing %s: %v", metadataPath, err)
	}

	fmt.Printf("wrote %s and %s\n", packagePath, metadataPath)
}

func formatMetadata(pctx *container.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", pctx.Info.Name)
	fmt.Fprintf(&b, "version: %s\n", pctx.Info.Version)
	fmt.Fprintf(&b, "license: %s\n", pctx.Info.License)
	fmt.Fprintf(&b, "authors: %s\n", strings.Join(pctx.Info.Authors, ", "))
	fmt.Fprintf(&b, "dependencies: %d\n", len(pctx.Dependencies))
	for _, d := range pctx.Dependencies {
		fmt.Fprintf(&b, "  %s %s\n", d.Name, d.VersionReq)
	}
	fmt.Fprintf(&b, "verified signatures: %d\n", len(pctx.Verified))
	for _, v := range pctx.Verified {
		fmt.Fprintf(&b, "  %s\n", v.Type)
	}
	return b.String()
}

func loadSigner(certPath, keyPath string) (*x509.Certificate, crypto.Signer, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading cert: %w", err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, nil, fmt.Errorf("%s: no PEM block found", certPath)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing cert: %w", err)
	}

	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading key: %w", err)
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, nil, fmt.Errorf("%s: no PEM block found", keyPath)
	}
	key, err := parsePrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing key: %w", err)
	}
	return cert, key, nil
}

func parsePrivateKey(der []byte) (crypto.Signer, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("key does not implement crypto.Signer")
		}
		return signer, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("unsupported private key encoding")
}

func loadRoots(paths []string) ([]*x509.Certificate, error) {
	certs := make([]*x509.Certificate, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		for len(data) > 0 {
			var block *pem.Block
			block, data = pem.Decode(data)
			if block == nil {
				break
			}
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			certs = append(certs, cert)
		}
	}
	return certs, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
