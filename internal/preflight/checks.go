package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"dotsocr/internal/config"
	"dotsocr/internal/deps"
)

// MinFreeBytes is the free space below which a data directory fails its check.
const MinFreeBytes uint64 = 512 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least minFree bytes available.
func CheckFreeSpace(name, path string, minFree uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(free), path)
	if free < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%s (below %s)", detail, humanize.IBytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckParserEndpoint verifies that the vLLM server backing the parser accepts connections.
func CheckParserEndpoint(ctx context.Context, address string) Result {
	const name = "vLLM endpoint"

	address = strings.TrimSpace(address)
	if address == "" || strings.HasPrefix(address, ":") {
		return Result{Name: name, Detail: "missing address"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(checkCtx, "tcp", address)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (unreachable: %v)", address, err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", address)}
}

// CheckSystemDeps evaluates the external programs required by the configured parser.
// Both the daemon health endpoint and the CLI use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return deps.CheckBinaries(ctx, []deps.Requirement{
		{
			Name:        "DotsOCR parser",
			Command:     cfg.Parser.Command,
			Probe:       parserProbe(cfg.Parser.Args),
			Description: "Required for non-mock parsing",
		},
	})
}

// parserProbe turns "-m package.module" parser arguments into an import check
// of the top-level package. Other invocations are only looked up on PATH.
func parserProbe(args []string) []string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] != "-m" {
			continue
		}
		module := strings.TrimSpace(args[i+1])
		if module == "" {
			return nil
		}
		pkg, _, _ := strings.Cut(module, ".")
		return []string{"-c", "import " + pkg}
	}
	return nil
}
