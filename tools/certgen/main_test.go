package main

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/Quaternijkon/betterfly/internal/certgen"
)

func TestRun_WritesCAAndServerPair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	if err := run(dir, []string{"localhost", " 127.0.0.1 ", ""}); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, name := range []string{"ca.crt", "ca.key", "server.crt", "server.key"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	info, err := os.Stat(filepath.Join(dir, "server.key"))
	if err == nil && info.Mode().Perm() != 0o600 {
		t.Errorf("server.key mode = %v; want 0600", info.Mode().Perm())
	}

	pair, err := tls.LoadX509KeyPair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
	if err != nil {
		t.Fatalf("load server pair: %v", err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		t.Fatalf("parse leaf: %v", err)
	}
	caCert, _, err := certgen.LoadCACredentials(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
	if err != nil {
		t.Fatalf("load CA: %v", err)
	}
	if err := leaf.CheckSignatureFrom(caCert); err != nil {
		t.Errorf("server certificate not signed by CA: %v", err)
	}
	if len(leaf.IPAddresses) != 1 {
		t.Errorf("IPAddresses = %v; want 127.0.0.1", leaf.IPAddresses)
	}
}

func TestRun_ReusesExistingCA(t *testing.T) {
	dir := t.TempDir()
	if err := run(dir, []string{"localhost"}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCA, _ := os.ReadFile(filepath.Join(dir, "ca.crt"))
	firstServer, _ := os.ReadFile(filepath.Join(dir, "server.crt"))

	if err := run(dir, []string{"localhost"}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	secondCA, _ := os.ReadFile(filepath.Join(dir, "ca.crt"))
	secondServer, _ := os.ReadFile(filepath.Join(dir, "server.crt"))

	if !bytes.Equal(firstCA, secondCA) {
		t.Error("CA was regenerated; want it reused")
	}
	if bytes.Equal(firstServer, secondServer) {
		t.Error("server certificate was not reissued")
	}
}

func TestRun_CorruptCA(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ca.crt"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ca.key"), []byte("junk"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := run(dir, []string{"localhost"}); err == nil {
		t.Error("expected error for a corrupt CA")
	}
}
