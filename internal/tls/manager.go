package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"synapse-service/internal/config"
	"synapse-service/internal/util"
)

var ErrNoCertificate = errors.New("no TLS certificate available")

// Manager serves certificates from ACME, then configured files, then (outside production)
// a generated development certificate.
type Manager struct {
	cfg        config.ServerConfig
	production bool
	autoCert   *autocert.Manager

	once     sync.Once
	fallback *tls.Certificate
	err      error
}

func NewManager(cfg config.ServerConfig, environment string) *Manager {
	m := &Manager{
		cfg:        cfg,
		production: environment == "production",
	}

	if cfg.AutoCert && cfg.EnableTLS && cfg.Domain != "" {
		m.setupAutoCert()
	}

	return m
}

func (m *Manager) setupAutoCert() {
	if err := os.MkdirAll(m.cfg.AutoCertDir, 0o700); err != nil {
		util.Warn("Could not create autocert directory", zap.Error(err))
		return
	}

	m.autoCert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(m.cfg.Domain),
		Cache:      autocert.DirCache(m.cfg.AutoCertDir),
		Email:      m.cfg.Email,
	}

	util.Info("AutoCert configured",
		zap.String("domain", m.cfg.Domain),
		zap.String("cache_dir", m.cfg.AutoCertDir))
}

func (m *Manager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		cert, err := m.autoCert.GetCertificate(hello)
		if err == nil {
			return cert, nil
		}
		util.Debug("AutoCert unavailable, falling back", zap.String("server_name", hello.ServerName), zap.Error(err))
	}

	m.once.Do(func() {
		m.fallback, m.err = m.loadFallback()
	})
	return m.fallback, m.err
}

func (m *Manager) loadFallback() (*tls.Certificate, error) {
	if m.cfg.CertFile != "" && m.cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(m.cfg.CertFile, m.cfg.KeyFile)
		if err == nil {
			util.Info("Loaded TLS certificate", zap.String("cert_file", m.cfg.CertFile))
			return &cert, nil
		}
		util.Warn("Could not load TLS certificate files", zap.Error(err))
	}

	if m.production {
		return nil, ErrNoCertificate
	}

	hosts := []string{"localhost", "127.0.0.1", "::1"}
	if m.cfg.Domain != "" {
		hosts = append([]string{m.cfg.Domain}, hosts...)
	}
	cert, err := NewDevCertGenerator(m.cfg.AutoCertDir).GenerateCert(hosts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate development certificate: %w", err)
	}
	return &cert, nil
}

func (m *Manager) TLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
}

// AutocertManager is nil unless ACME is configured; main uses it for the HTTP-01 listener.
func (m *Manager) AutocertManager() *autocert.Manager {
	return m.autoCert
}
