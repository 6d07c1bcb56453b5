// FILE: adminfeed/src/internal/tls/client.go
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"adminfeed/src/internal/config"

	"github.com/lixenwraith/log"
)

// ClientManager holds the TLS settings shared by the push transport (wss://) and the history client (https://)
type ClientManager struct {
	config    *config.TLSClientConfig
	tlsConfig *tls.Config
}

// NewClientManager returns nil when the [tls] section is disabled; a nil manager yields a nil config,
// which both clients treat as "use the system defaults"
func NewClientManager(cfg *config.TLSClientConfig, logger *log.Logger) (*ClientManager, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	tlsConfig, err := buildConfig(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.InsecureSkipVerify {
		logger.Warn("msg", "TLS certificate verification disabled",
			"component", "tls")
	}
	logger.Info("msg", "TLS client configured",
		"component", "tls",
		"min_version", tlsVersionString(tlsConfig.MinVersion),
		"server_ca", cfg.ServerCAFile,
		"mtls", len(tlsConfig.Certificates) > 0,
		"server_name", cfg.ServerName)

	return &ClientManager{config: cfg, tlsConfig: tlsConfig}, nil
}

func buildConfig(cfg *config.TLSClientConfig) (*tls.Config, error) {
	minVersion, err := parseTLSVersion(cfg.MinVersion, tls.VersionTLS12)
	if err != nil {
		return nil, fmt.Errorf("min_version: %w", err)
	}
	maxVersion, err := parseTLSVersion(cfg.MaxVersion, tls.VersionTLS13)
	if err != nil {
		return nil, fmt.Errorf("max_version: %w", err)
	}
	if maxVersion < minVersion {
		return nil, fmt.Errorf("max_version %s is below min_version %s",
			tlsVersionString(maxVersion), tlsVersionString(minVersion))
	}

	tc := &tls.Config{
		MinVersion:         minVersion,
		MaxVersion:         maxVersion,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CipherSuites != "" {
		if tc.CipherSuites, err = parseCipherSuites(cfg.CipherSuites); err != nil {
			return nil, err
		}
	}

	if cfg.ServerCAFile != "" {
		if tc.RootCAs, err = loadRootCAs(cfg.ServerCAFile); err != nil {
			return nil, err
		}
	}

	switch {
	case cfg.ClientCertFile != "" && cfg.ClientKeyFile != "":
		pair, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert/key: %w", err)
		}
		tc.Certificates = []tls.Certificate{pair}
	case cfg.ClientCertFile != "" || cfg.ClientKeyFile != "":
		return nil, fmt.Errorf("both client_cert_file and client_key_file must be provided for mTLS")
	}

	return tc, nil
}

// loadRootCAs replaces the system roots with the PEM bundle at path
func loadRootCAs(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read server CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse server CA certificate in %s", path)
	}
	return pool, nil
}

// GetConfig returns a copy of the TLS configuration, or nil for a nil manager
func (m *ClientManager) GetConfig() *tls.Config {
	if m == nil {
		return nil
	}
	return m.tlsConfig.Clone()
}

// GetStats reports the effective TLS settings
func (m *ClientManager) GetStats() map[string]any {
	if m == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":              true,
		"min_version":          tlsVersionString(m.tlsConfig.MinVersion),
		"max_version":          tlsVersionString(m.tlsConfig.MaxVersion),
		"has_client_cert":      len(m.tlsConfig.Certificates) > 0,
		"has_server_ca":        m.tlsConfig.RootCAs != nil,
		"insecure_skip_verify": m.config.InsecureSkipVerify,
	}
}
