package tls

import (
	"crypto/tls"
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse-service/internal/config"
)

func TestDevCertGenerator(t *testing.T) {
	dir := t.TempDir()
	gen := NewDevCertGenerator(dir)

	cert, err := gen.GenerateCert([]string{"synapse.local", "127.0.0.1"})
	require.NoError(t, err)

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"synapse.local"}, leaf.DNSNames)
	require.Len(t, leaf.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", leaf.IPAddresses[0].String())

	again, err := gen.GenerateCert([]string{"synapse.local"})
	require.NoError(t, err)
	assert.Equal(t, cert.Certificate[0], again.Certificate[0], "valid certificate is reused")

	gen.now = func() time.Time { return time.Now().Add(devCertValidity - 24*time.Hour) }
	renewed, err := gen.GenerateCert([]string{"synapse.local"})
	require.NoError(t, err)
	assert.NotEqual(t, cert.Certificate[0], renewed.Certificate[0], "near expiry certificate is replaced")
}

func TestManagerFallback(t *testing.T) {
	cfg := config.ServerConfig{EnableTLS: true, AutoCertDir: t.TempDir(), Domain: "synapse.local"}

	dev := NewManager(cfg, "development")
	assert.Nil(t, dev.AutocertManager())
	first, err := dev.GetCertificate(&tls.ClientHelloInfo{ServerName: "synapse.local"})
	require.NoError(t, err)
	second, err := dev.GetCertificate(&tls.ClientHelloInfo{ServerName: "synapse.local"})
	require.NoError(t, err)
	assert.Same(t, first, second)

	prod := NewManager(cfg, "production")
	_, err = prod.GetCertificate(&tls.ClientHelloInfo{ServerName: "synapse.local"})
	assert.ErrorIs(t, err, ErrNoCertificate)

	assert.Equal(t, uint16(tls.VersionTLS12), dev.TLSConfig().MinVersion)
}
