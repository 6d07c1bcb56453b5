// FILE: adminfeed/src/internal/tls/parse.go
package tls

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// parseTLSVersion converts "TLS1.2" or "TLS1.3" into a crypto/tls constant
func parseTLSVersion(version string, defaultVersion uint16) (uint16, error) {
	switch strings.ToUpper(strings.TrimSpace(version)) {
	case "":
		return defaultVersion, nil
	case "TLS1.2", "TLS12":
		return tls.VersionTLS12, nil
	case "TLS1.3", "TLS13":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version '%s' (valid: TLS1.2, TLS1.3)", version)
	}
}

// parseCipherSuites converts a comma-separated list of TLS 1.2 suite names; unknown names are an error
func parseCipherSuites(suites string) ([]uint16, error) {
	known := make(map[string]uint16)
	for _, s := range tls.CipherSuites() {
		known[s.Name] = s.ID
	}

	var result []uint16
	for _, suite := range strings.Split(suites, ",") {
		suite = strings.TrimSpace(suite)
		if suite == "" {
			continue
		}
		id, ok := known[suite]
		if !ok {
			return nil, fmt.Errorf("unknown or insecure cipher suite '%s'", suite)
		}
		result = append(result, id)
	}
	return result, nil
}

// tlsVersionString converts a crypto/tls version constant back to its name
func tlsVersionString(version uint16) string {
	switch version {
	case tls.VersionTLS12:
		return "TLS1.2"
	case tls.VersionTLS13:
		return "TLS1.3"
	default:
		return fmt.Sprintf("0x%04x", version)
	}
}
