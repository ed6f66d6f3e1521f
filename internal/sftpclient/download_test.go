package sftpclient

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Host: "test-host"}.withDefaults()

	if cfg.Port != 22 {
		t.Errorf("Expected default Port to be 22, got %d", cfg.Port)
	}
}

func TestHostKeyCallback(t *testing.T) {
	if _, err := hostKeyCallback(Config{}); err == nil {
		t.Error("Expected error without known_hosts or insecure flag")
	}

	cb, err := hostKeyCallback(Config{InsecureIgnoreHostKey: true})
	if err != nil || cb == nil {
		t.Errorf("Expected insecure callback, got cb=%v err=%v", cb, err)
	}

	if _, err := hostKeyCallback(Config{KnownHostsFile: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("Expected error for unreadable known_hosts file")
	}

	kh := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(kh, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := hostKeyCallback(Config{KnownHostsFile: kh}); err != nil {
		t.Errorf("Expected empty known_hosts to load, got %v", err)
	}
}

func TestDownloadValidation(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name          string
		cfg           Config
		errorContains string
	}{
		{
			name:          "Missing credentials",
			cfg:           Config{},
			errorContains: "sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS",
		},
		{
			name:          "No host key policy",
			cfg:           Config{Host: "127.0.0.1", User: "u", Pass: "p"},
			errorContains: "SFTP_KNOWN_HOSTS",
		},
		{
			name:          "Unreachable host",
			cfg:           Config{Host: "127.0.0.1", Port: 1, User: "u", Pass: "p", InsecureIgnoreHostKey: true},
			errorContains: "sftp: dial error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Download(ctx, tc.cfg, "/inbound/new_user.txt")
			if err == nil {
				t.Fatalf("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.errorContains) {
				t.Errorf("Expected error to contain %q, got %q", tc.errorContains, err.Error())
			}
		})
	}
}
