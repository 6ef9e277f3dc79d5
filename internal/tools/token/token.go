// Package token prints caller identities and signed bearer tokens for the
// ledger API.
package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sheikh-saqib/research-funding-ledger/internal/auth"
)

// Config holds configuration for token generation.
type Config struct {
	// Seed is a base64url Ed25519 seed. A new key is generated when empty.
	Seed     string
	Audience string
	TTL      time.Duration
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Audience: "research-funding-ledger", TTL: 10 * time.Minute}
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "base64url Ed25519 seed (default: generate a new key)")
	fs.StringVar(&cfg.Audience, "audience", cfg.Audience, "token audience, must match LEDGER_TOKEN_AUDIENCE")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run writes the identity and a token signed at now to out. reader supplies
// key material when no seed is configured.
func Run(cfg Config, out io.Writer, reader io.Reader, now time.Time) error {
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.TTL <= 0 {
		return errors.New("ttl must be greater than zero")
	}
	if reader == nil {
		reader = rand.Reader
	}

	var (
		key       ed25519.PrivateKey
		generated bool
	)
	if strings.TrimSpace(cfg.Seed) == "" {
		_, priv, err := ed25519.GenerateKey(reader)
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		key, generated = priv, true
	} else {
		seed, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cfg.Seed))
		if err != nil {
			return fmt.Errorf("decode seed: %w", err)
		}
		if len(seed) != ed25519.SeedSize {
			return fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
		}
		key = ed25519.NewKeyFromSeed(seed)
	}

	signed, err := auth.Sign(key, cfg.Audience, now, cfg.TTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	if generated {
		if _, err := fmt.Fprintf(out, "SEED=%s\n", base64.RawURLEncoding.EncodeToString(key.Seed())); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(out, "IDENTITY=%s\nTOKEN=%s\n", auth.Identity(key.Public().(ed25519.PublicKey)), signed)
	return err
}
