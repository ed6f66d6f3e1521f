package record

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"

	"workspace-provision/internal/apperr"
	"workspace-provision/internal/domain"
	"workspace-provision/internal/sftpclient"
)

const sftpScheme = "sftp://"

// Source loads the record for one run from a local path or an sftp:// URL.
type Source struct {
	Location string
	SFTP     sftpclient.Config
}

func (s Source) Load(ctx context.Context) (domain.UserRecord, error) {
	if !strings.HasPrefix(s.Location, sftpScheme) {
		return ParseFile(s.Location)
	}

	cfg, remotePath, err := s.sftpTarget()
	if err != nil {
		return nil, apperr.Configuration("invalid record location", err)
	}
	b, err := sftpclient.Download(ctx, cfg, remotePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.InputNotFound("input file not found at: "+s.Location, err)
		}
		return nil, fmt.Errorf("record: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

// sftpTarget merges the host, port and user named in the URL over the
// configured SFTP settings. The password always comes from configuration.
func (s Source) sftpTarget() (sftpclient.Config, string, error) {
	u, err := url.Parse(s.Location)
	if err != nil {
		return sftpclient.Config{}, "", err
	}
	if u.Path == "" || u.Path == "/" {
		return sftpclient.Config{}, "", fmt.Errorf("no remote path in %q", s.Location)
	}

	cfg := s.SFTP
	if h := u.Hostname(); h != "" {
		cfg.Host = h
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return sftpclient.Config{}, "", fmt.Errorf("invalid port %q", p)
		}
		cfg.Port = n
	}
	if u.User != nil && u.User.Username() != "" {
		cfg.User = u.User.Username()
	}
	return cfg, u.Path, nil
}
