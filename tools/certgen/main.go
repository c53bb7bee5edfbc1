// Package main writes a development CA and a server certificate signed by it.
// The CA is reused when ca.crt and ca.key already exist in the output directory,
// so clients keep trusting it across server certificate renewals.
//
// Run the server with -tls-cert certs/server.crt -tls-key certs/server.key and
// point the client at the CA with --ca certs/ca.crt.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Quaternijkon/betterfly/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ",")); err != nil {
		fmt.Fprintf(os.Stderr, "certgen: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Certificates written to %s\n", *dir)
}

func run(dir string, hosts []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	caCertPath := filepath.Join(dir, "ca.crt")
	caKeyPath := filepath.Join(dir, "ca.key")

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if errors.Is(err, fs.ErrNotExist) {
		certPEM, keyPEM, genErr := certgen.GenerateCA("betterfly dev CA")
		if genErr != nil {
			return genErr
		}
		if err := writePair(caCertPath, caKeyPath, certPEM, keyPEM); err != nil {
			return err
		}
		caCert, caKey, err = certgen.ParseCA(certPEM, keyPEM)
	}
	if err != nil {
		return err
	}

	var names []string
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}
	certPEM, keyPEM, err := certgen.GenerateServerCertificate(names, caCert, caKey)
	if err != nil {
		return err
	}
	return writePair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), certPEM, keyPEM)
}

func writePair(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return err
	}
	return os.WriteFile(keyPath, keyPEM, 0o600)
}
