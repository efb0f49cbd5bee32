package torproc

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// reservedKeywords are torrc keywords owned by the process manager. User
// configuration for these keys is dropped (with a warning) because the
// manager must know the control port and data directory it manages, and
// allocates the SOCKS port itself unless configured explicitly.
var reservedKeywords = map[string]struct{}{
	"DataDirectory": {},
	"ControlPort":   {},
	"SocksPort":     {},
}

// renderTorrc produces the torrc contents for one instance: the managed
// keywords first, then the user configuration in sorted key order so output
// is deterministic. Keys colliding with managed keywords are skipped.
func renderTorrc(dataDir string, socksPort, controlPort int, conf map[string]string, log *slog.Logger) string {
	var b strings.Builder
	b.WriteString("# Generated by tor-router. Do not edit; changes are overwritten on restart.\n")
	fmt.Fprintf(&b, "DataDirectory %s\n", dataDir)
	fmt.Fprintf(&b, "SocksPort 127.0.0.1:%d\n", socksPort)
	fmt.Fprintf(&b, "ControlPort 127.0.0.1:%d\n", controlPort)

	keys := make([]string, 0, len(conf))
	for k := range conf {
		if _, reserved := reservedKeywords[k]; reserved {
			if log != nil {
				log.Warn("ignoring reserved torrc keyword from instance config", "keyword", k)
			}
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "%s %s\n", k, conf[k])
	}
	return b.String()
}

// writeTorrc writes the rendered torrc to path with owner-only permissions.
func writeTorrc(path, contents string) error {
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("write torrc %s: %w", path, err)
	}
	return nil
}
