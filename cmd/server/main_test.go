package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/config"
)

func TestTokenCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--config", cfgPath, "--email", "alice@x.com", "--firstname", "Alice", "--lastname", "Liddell"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	cfg := config.Default()
	id, err := auth.VerifyToken(&auth.JWTConfig{Secret: []byte(cfg.JWTSecret)}, strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("printed token does not verify: %v", err)
	}
	if id != (auth.Identity{Firstname: "Alice", Lastname: "Liddell", Email: "alice@x.com"}) {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestTokenCommandRequiresEmail(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--config", filepath.Join(t.TempDir(), "config.yaml")})

	if err := root.Execute(); err == nil {
		t.Fatal("expected missing --email to fail")
	}
}
