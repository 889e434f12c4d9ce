package threatintel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/youmark/pkcs8"
	"golang.org/x/net/proxy"
)

// TransportConfig holds the process-wide TLS and proxy settings.
// Empty strings disable the corresponding option.
type TransportConfig struct {
	CertFile           string
	KeyFile            string
	Passphrase         string
	CAFile             string
	ProxyURL           string
	RejectUnauthorized bool
	Timeout            time.Duration
}

// NewHTTPClient builds the HTTP client shared by every lookup. It is built once
// at startup and treated as immutable afterwards.
func NewHTTPClient(cfg TransportConfig) (*http.Client, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !cfg.RejectUnauthorized,
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		cert, err := loadClientCertificate(cfg.CertFile, cfg.KeyFile, cfg.Passphrase)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		pool, err := loadCAPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if cfg.ProxyURL != "" {
		if err := applyProxy(transport, dialer, cfg.ProxyURL); err != nil {
			return nil, err
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

func applyProxy(transport *http.Transport, dialer *net.Dialer, raw string) error {
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse proxy url: %w", err)
	}

	switch proxyURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
	case "socks5", "socks5h":
		socksDialer, err := proxy.FromURL(proxyURL, dialer)
		if err != nil {
			return fmt.Errorf("create socks5 dialer: %w", err)
		}
		contextDialer, ok := socksDialer.(proxy.ContextDialer)
		if !ok {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return socksDialer.Dial(network, addr)
			}
			return nil
		}
		transport.DialContext = contextDialer.DialContext
	default:
		return fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
	return nil
}

func loadClientCertificate(certFile, keyFile, passphrase string) (tls.Certificate, error) {
	if certFile == "" || keyFile == "" {
		return tls.Certificate{}, errors.New("client certificate requires both cert and key")
	}

	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read cert: %w", err)
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read key: %w", err)
	}

	if passphrase != "" {
		keyPEM, err = decryptKey(keyPEM, passphrase)
		if err != nil {
			return tls.Certificate{}, err
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load key pair: %w", err)
	}
	return cert, nil
}

// decryptKey unwraps a PKCS#8 "ENCRYPTED PRIVATE KEY" or a legacy
// Proc-Type encrypted PEM key. Unencrypted keys pass through.
func decryptKey(keyPEM []byte, passphrase string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("key file contains no PEM block")
	}

	if block.Type == "ENCRYPTED PRIVATE KEY" {
		key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("decrypt key: %w", err)
		}
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("encode key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
	}

	//nolint:staticcheck // Proc-Type encrypted keys are still produced by older tooling
	if !x509.IsEncryptedPEMBlock(block) {
		return keyPEM, nil
	}
	//nolint:staticcheck
	der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("decrypt key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
}

func loadCAPool(caFile string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return pool, nil
}
