package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/sheikh-saqib/research-funding-ledger/internal/auth"
)

func parseOutput(t *testing.T, out string) map[string]string {
	t.Helper()
	values := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			t.Fatalf("malformed line %q", line)
		}
		values[k] = v
	}
	return values
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Audience != "research-funding-ledger" || cfg.TTL != 10*time.Minute || cfg.Seed != "" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestParseConfigOverride(t *testing.T) {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-audience", "staging", "-ttl", "1m"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Audience != "staging" || cfg.TTL != time.Minute {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestRunGeneratesVerifiableToken(t *testing.T) {
	now := time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)
	buf := &bytes.Buffer{}
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)

	if err := Run(Config{Audience: "ledger", TTL: time.Minute}, buf, bytes.NewReader(seed), now); err != nil {
		t.Fatalf("run: %v", err)
	}
	values := parseOutput(t, buf.String())
	if values["SEED"] != base64.RawURLEncoding.EncodeToString(seed) {
		t.Fatalf("seed = %q", values["SEED"])
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Audience: "ledger",
		MaxAge:   time.Minute,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	identity, err := verifier.Verify(values["TOKEN"])
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity != values["IDENTITY"] {
		t.Fatalf("identity = %q, want %q", identity, values["IDENTITY"])
	}
}

func TestRunWithSeedKeepsIdentity(t *testing.T) {
	now := time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)
	seed := base64.RawURLEncoding.EncodeToString(bytes.Repeat([]byte{3}, ed25519.SeedSize))

	first, second := &bytes.Buffer{}, &bytes.Buffer{}
	cfg := Config{Seed: seed, Audience: "ledger", TTL: time.Minute}
	if err := Run(cfg, first, nil, now); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := Run(cfg, second, nil, now.Add(time.Minute)); err != nil {
		t.Fatalf("second run: %v", err)
	}

	a, b := parseOutput(t, first.String()), parseOutput(t, second.String())
	if a["IDENTITY"] != b["IDENTITY"] {
		t.Fatalf("identity changed: %q vs %q", a["IDENTITY"], b["IDENTITY"])
	}
	if _, ok := a["SEED"]; ok {
		t.Fatal("seed printed for a supplied key")
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	now := time.Now()
	if err := Run(Config{Audience: "a", TTL: time.Minute}, nil, nil, now); err == nil {
		t.Fatal("expected error for nil output")
	}
	if err := Run(Config{Audience: "a"}, &bytes.Buffer{}, nil, now); err == nil {
		t.Fatal("expected error for zero ttl")
	}
	if err := Run(Config{Seed: "c2hvcnQ", Audience: "a", TTL: time.Minute}, &bytes.Buffer{}, nil, now); err == nil {
		t.Fatal("expected error for short seed")
	}
}
