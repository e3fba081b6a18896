// tokenctl issues bearer tokens for the internal read API.
//
//	tokenctl -user <uuid> [-role admin] [-ttl 24h]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/creator-marketplace/backend/internal/auth"
	"github.com/creator-marketplace/backend/internal/config"
	"github.com/google/uuid"
)

func main() {
	userFlag := flag.String("user", "", "user id (uuid) the token identifies")
	roleFlag := flag.String("role", "admin", "role claim to embed")
	ttlFlag := flag.Duration("ttl", 0, "token lifetime (default JWT_EXPIRATION_HOURS)")
	flag.Parse()

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -user: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	ttl := *ttlFlag
	if ttl <= 0 {
		ttl = cfg.JWTExpiration
	}

	token, err := auth.GenerateJWT(cfg.JWTSecret, userID, *roleFlag, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
