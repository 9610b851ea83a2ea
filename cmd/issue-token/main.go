package main

import (
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"golang.org/x/crypto/bcrypt"

	"finbook/internal/config"
	"finbook/internal/middleware"
)

type Params struct {
	Subject string `descr:"Principal to put in the token subject, or the pipeline key to hash with --hash-key" positional:"true"`
	TTL     string `descr:"Token lifetime" default:"24h"`
	HashKey bool   `descr:"Print a bcrypt hash of the argument for PIPELINE_API_KEY_HASH instead of a token" default:"false"`
}

func main() {
	boa.NewCmdT[Params]("issue-token").
		WithShort("Issue development credentials for the Finbook API").
		WithLong("Signs a bearer token with JWT_SECRET for local use, or hashes a pipeline API key.").
		WithRunFunc(func(params *Params) {
			out, err := issue(params)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(out)
		}).
		Run()
}

func issue(params *Params) (string, error) {
	if params.HashKey {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Subject), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("hashing key: %w", err)
		}
		return string(hash), nil
	}

	ttl, err := time.ParseDuration(params.TTL)
	if err != nil || ttl <= 0 {
		return "", fmt.Errorf("invalid ttl %q", params.TTL)
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return middleware.IssueToken([]byte(cfg.JWTSecret), params.Subject, ttl)
}
