package preflight

import (
	"context"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"dotsocr/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// RunAll executes the filesystem and endpoint checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir),
		CheckFreeSpace("Storage free space", cfg.Paths.StorageDir, MinFreeBytes),
		CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir),
	}
	// Results usually share a filesystem with storage; only report it once.
	if !sameDevice(cfg.Paths.StorageDir, cfg.Paths.ResultsDir) {
		results = append(results, CheckFreeSpace("Results free space", cfg.Paths.ResultsDir, MinFreeBytes))
	}
	if cfg.UsesCatalog() {
		results = append(results, CheckDirectoryAccess("Catalog directory", filepath.Dir(cfg.Paths.DBPath)))
	}

	// Mock parses work without the model server.
	endpoint := CheckParserEndpoint(ctx, joinHostPort(cfg.Parser.IP, cfg.Parser.Port))
	endpoint.Optional = true
	results = append(results, endpoint)
	return results
}

func joinHostPort(host string, port int) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func sameDevice(a, b string) bool {
	var sa, sb unix.Stat_t
	if unix.Stat(a, &sa) != nil || unix.Stat(b, &sb) != nil {
		return false
	}
	return sa.Dev == sb.Dev
}
