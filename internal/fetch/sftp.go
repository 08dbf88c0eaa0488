package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type sftpRemote struct {
	timeout    time.Duration
	knownHosts string
	keyFile    string
}

func (r *sftpRemote) clientConfig(u *url.URL) (*ssh.ClientConfig, error) {
	if r.knownHosts == "" {
		return nil, fmt.Errorf("sftp: known hosts file is not configured")
	}
	hostKeys, err := knownhosts.New(r.knownHosts)
	if err != nil {
		return nil, fmt.Errorf("sftp: load known hosts: %w", err)
	}

	config := &ssh.ClientConfig{
		HostKeyCallback: hostKeys,
		Timeout:         r.timeout,
	}
	if u.User != nil {
		config.User = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			config.Auth = append(config.Auth, ssh.Password(pass))
		}
	}
	if r.keyFile != "" {
		key, err := os.ReadFile(r.keyFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: failed to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("sftp: failed to parse private key: %w", err)
		}
		config.Auth = append(config.Auth, ssh.PublicKeys(signer))
	}
	if len(config.Auth) == 0 {
		return nil, fmt.Errorf("sftp: no authentication method provided")
	}
	return config, nil
}

func (r *sftpRemote) copyTo(ctx context.Context, u *url.URL, dst io.Writer) error {
	config, err := r.clientConfig(u)
	if err != nil {
		return err
	}

	addr := hostPort(u, DefaultSSHPort)
	dialer := net.Dialer{Timeout: r.timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("sftp: failed to connect: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		_ = netConn.Close()
		return fmt.Errorf("sftp: handshake failed: %w", err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)
	defer func() { _ = sshClient.Close() }()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("sftp: failed to create client: %w", err)
	}
	defer func() { _ = client.Close() }()

	src, err := client.Open(u.Path)
	if err != nil {
		return fmt.Errorf("sftp: open %s: %w", u.Path, err)
	}
	defer func() { _ = src.Close() }()

	if _, err := src.WriteTo(dst); err != nil {
		return fmt.Errorf("sftp: download %s: %w", u.Path, err)
	}
	return nil
}
