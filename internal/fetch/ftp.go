package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/tphakala/marcharvest/internal/logger"
)

type ftpRemote struct {
	timeout time.Duration
}

func (r *ftpRemote) copyTo(ctx context.Context, u *url.URL, dst io.Writer) error {
	conn, err := ftp.Dial(hostPort(u, DefaultFTPPort),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(r.timeout))
	if err != nil {
		return fmt.Errorf("ftp: connection failed: %w", err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			GetLogger().Debug("ftp quit failed", logger.Error(err))
		}
	}()

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	if err := conn.Login(user, pass); err != nil {
		return fmt.Errorf("ftp: login failed: %w", err)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return fmt.Errorf("ftp: retrieve %s: %w", u.Path, err)
	}
	defer func() { _ = resp.Close() }()

	if _, err := io.Copy(dst, resp); err != nil {
		return fmt.Errorf("ftp: download %s: %w", u.Path, err)
	}
	return nil
}
