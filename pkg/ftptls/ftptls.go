// Package ftptls loads the TLS configuration used for explicit FTPS
// (AUTH TLS) on the control channel and for PROT P data connections.
package ftptls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Options holds the certificate material paths.
type Options struct {
	// CertFile is the path to the PEM server certificate.
	CertFile string

	// KeyFile is the path to the PEM private key.
	KeyFile string

	// CAFile optionally enables client certificate verification against
	// this CA bundle.
	CAFile string
}

// Load builds the server-side tls.Config from the given options.
//
// Returns (nil, nil) when no certificate is configured: the server then runs
// plaintext-only and answers AUTH with 534. The floor is TLS 1.2; 1.2
// connections are restricted to AEAD suites with forward secrecy, 1.3 suites
// are not configurable and always qualify.
func Load(opts Options) (*tls.Config, error) {
	if opts.CertFile == "" && opts.KeyFile == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}

	if opts.CAFile != "" {
		pem, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read client CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("client CA bundle %s contains no certificates", opts.CAFile)
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}
