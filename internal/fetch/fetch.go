// Package fetch resolves records file URIs to local paths, staging ftp:// and
// sftp:// files into a local directory first.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/tphakala/marcharvest/internal/conf"
	"github.com/tphakala/marcharvest/internal/errors"
	"github.com/tphakala/marcharvest/internal/logger"
)

// ErrUnreachable marks a remote file that could not be staged.
var ErrUnreachable = errors.NewStd("remote file unreachable")

// Default connection settings.
const (
	DefaultTimeout = 30 * time.Second
	DefaultFTPPort = "21"
	DefaultSSHPort = "22"

	stagedFilePerm = 0o600
	stagingDirPerm = 0o750
)

// GetLogger returns the fetch module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("fetch")
}

// Config configures a Fetcher.
type Config struct {
	StagingDir     string
	Timeout        time.Duration
	KnownHostsFile string // required for sftp
	PrivateKeyFile string
}

// ConfigFromSettings builds a Config from application settings.
func ConfigFromSettings(s *conf.Settings) Config {
	return Config{
		StagingDir:     s.Harvest.StagingDir,
		Timeout:        s.Fetch.Timeout,
		KnownHostsFile: s.Fetch.KnownHostsFile,
		PrivateKeyFile: s.Fetch.PrivateKeyFile,
	}
}

// Local is a resolved records file.
type Local struct {
	Path   string
	Remote bool
	// Release removes the staged copy of a remote file.
	Release func()
}

// remote copies one file from a server into dst.
type remote interface {
	copyTo(ctx context.Context, u *url.URL, dst io.Writer) error
}

// Fetcher resolves file URIs.
type Fetcher struct {
	cfg     Config
	remotes map[string]remote
	log     logger.Logger
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = filepath.Join(os.TempDir(), "marcharvest")
	}
	return &Fetcher{
		cfg: cfg,
		remotes: map[string]remote{
			"ftp":  &ftpRemote{timeout: cfg.Timeout},
			"sftp": &sftpRemote{timeout: cfg.Timeout, knownHosts: cfg.KnownHostsFile, keyFile: cfg.PrivateKeyFile},
		},
		log: GetLogger(),
	}
}

// IsRemote reports whether uri needs staging.
func IsRemote(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "ftp", "sftp":
		return true
	default:
		return false
	}
}

// LocalPath returns the local path of a non-remote uri.
func LocalPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil {
			return filepath.FromSlash(u.Path)
		}
	}
	return uri
}

// Resolve returns a local path for uri. Remote files are downloaded into the
// staging directory; failures wrap ErrUnreachable.
func (f *Fetcher) Resolve(ctx context.Context, uri string) (*Local, error) {
	if !IsRemote(uri) {
		return &Local{Path: LocalPath(uri), Release: func() {}}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, unreachable(err, uri)
	}
	rm := f.remotes[strings.ToLower(u.Scheme)]

	if err := os.MkdirAll(f.cfg.StagingDir, stagingDirPerm); err != nil {
		return nil, errors.New(fmt.Errorf("create staging dir: %w", err)).
			Component("fetch").
			Category(errors.CategoryFileIO).
			Build()
	}

	target := filepath.Join(f.cfg.StagingDir, stagedName(uri))
	tmp, err := os.CreateTemp(f.cfg.StagingDir, ".staging-*")
	if err != nil {
		return nil, unreachable(err, uri)
	}
	tmpName := tmp.Name()

	start := time.Now()
	copyErr := rm.copyTo(ctx, u, tmp)
	closeErr := tmp.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil {
		copyErr = os.Chmod(tmpName, stagedFilePerm)
	}
	if copyErr == nil {
		copyErr = os.Rename(tmpName, target)
	}
	if copyErr != nil {
		_ = os.Remove(tmpName)
		return nil, unreachable(copyErr, uri)
	}

	f.log.Info("staged remote records file",
		logger.String("uri", u.Redacted()),
		logger.String("path", target),
		logger.Duration("elapsed", time.Since(start)))

	return &Local{
		Path:   target,
		Remote: true,
		Release: func() {
			if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
				f.log.Warn("failed to remove staged file", logger.String("path", target), logger.Error(err))
			}
		},
	}, nil
}

// stagedName derives a stable local file name from a remote uri.
func stagedName(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	name := hex.EncodeToString(sum[:8])
	if u, err := url.Parse(uri); err == nil {
		name += path.Ext(u.Path)
	}
	return name
}

func unreachable(err error, uri string) error {
	redacted := uri
	if u, perr := url.Parse(uri); perr == nil {
		redacted = u.Redacted()
	}
	return errors.New(fmt.Errorf("%w: %s: %w", ErrUnreachable, redacted, err)).
		Component("fetch").
		Category(errors.CategoryFetch).
		Context("scheme", strings.SplitN(redacted, ":", 2)[0]).
		Build()
}

// hostPort returns u's host with the default port applied.
func hostPort(u *url.URL, defaultPort string) string {
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%s", u.Hostname(), port)
}
