package remote

import (
	"crypto/tls"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Quaternijkon/betterfly/internal/certgen"
)

func TestNewHTTPClient_NoCA(t *testing.T) {
	c, err := NewHTTPClient("")
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	if c.Timeout != 0 {
		t.Errorf("Timeout = %v; want none, requests are bounded by their context", c.Timeout)
	}
}

func TestNewHTTPClient_ReadCAError(t *testing.T) {
	_, err := NewHTTPClient("nonexistent.pem")
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file not exist error, got %v", err)
	}
}

func TestNewHTTPClient_InvalidCA(t *testing.T) {
	caPath := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caPath, []byte("invalid pem"), 0600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}
	_, err := NewHTTPClient(caPath)
	if err == nil || !strings.Contains(err.Error(), "failed to parse CA cert") {
		t.Errorf("expected parse CA error, got %v", err)
	}
}

func TestNewHTTPClient_TrustsCustomCA(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ts.Certificate().Raw})
	caPath := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caPath, caPEM, 0600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}

	client, err := NewHTTPClient(caPath)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("request with custom CA failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d; want 200", resp.StatusCode)
	}

	plain, _ := NewHTTPClient("")
	if _, err := plain.Get(ts.URL); err == nil {
		t.Error("expected certificate error without the custom CA")
	}
}

func TestNewHTTPClient_TrustsGeneratedCA(t *testing.T) {
	caPEM, caKeyPEM, err := certgen.GenerateCA("test CA")
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	caCert, caKey, err := certgen.ParseCA(caPEM, caKeyPEM)
	if err != nil {
		t.Fatalf("ParseCA: %v", err)
	}
	certPEM, keyPEM, err := certgen.GenerateServerCertificate([]string{"127.0.0.1"}, caCert, caKey)
	if err != nil {
		t.Fatalf("GenerateServerCertificate: %v", err)
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("X509KeyPair: %v", err)
	}

	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	ts.TLS = &tls.Config{Certificates: []tls.Certificate{pair}}
	ts.StartTLS()
	defer ts.Close()

	caPath := filepath.Join(t.TempDir(), "ca.crt")
	if err := os.WriteFile(caPath, caPEM, 0600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}
	client, err := NewHTTPClient(caPath)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("request with generated CA failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d; want 204", resp.StatusCode)
	}
}
