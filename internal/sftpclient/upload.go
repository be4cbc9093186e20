package sftpclient

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"singularity/internal/config"
)

// Client holds an open SFTP session over SSH.
type Client struct {
	cfg  config.SFTPConfig
	ssh  *ssh.Client
	sftp *sftp.Client
}

// Dial connects and authenticates with password auth. The context bounds the
// TCP/SSH handshake.
func Dial(ctx context.Context, cfg config.SFTPConfig) (*Client, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		return nil, fmt.Errorf("sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "/"
	}

	// TODO: known_hosts verification when InsecureIgnoreHostKey is false.
	cb := ssh.InsecureIgnoreHostKey()

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: cb,
		Timeout:         20 * time.Second,
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	type dialRes struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialRes, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialRes{client: c, err: err}
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("sftp: dial error: %w", r.err)
		}
		sshClient = r.client
	}

	sftpCli, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("sftp: new client: %w", err)
	}
	return &Client{cfg: cfg, ssh: sshClient, sftp: sftpCli}, nil
}

func (c *Client) Close() error {
	c.sftp.Close()
	return c.ssh.Close()
}

// UploadFile copies one local file to <RemoteDir>/<remotePath>, creating
// parent directories as needed.
func (c *Client) UploadFile(localPath, remotePath string) error {
	target := path.Join(c.cfg.RemoteDir, remotePath)
	if err := c.sftp.MkdirAll(path.Dir(target)); err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", path.Dir(target), err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	dst, err := c.sftp.Create(target)
	if err != nil {
		return fmt.Errorf("sftp: create remote file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("sftp: upload copy: %w", err)
	}
	return nil
}

// UploadDir mirrors a local directory tree under RemoteDir, preserving the
// relative layout. Forward slashes are used remotely regardless of the local
// separator.
func (c *Client) UploadDir(localDir string) error {
	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		return c.UploadFile(p, filepath.ToSlash(rel))
	})
}

// UploadTree dials, mirrors localDir, and closes the session.
func UploadTree(ctx context.Context, cfg config.SFTPConfig, localDir string) error {
	client, err := Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.UploadDir(localDir)
}
