package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-settings/pkg/tokengenerator"
)

func main() {
	// Parse command line flags
	secret := flag.String("secret", "very-secure-jwt-secret", "Secret key for signing the token")
	issuer := flag.String("issuer", "simple-settings", "Issuer of the token")
	audience := flag.String("audience", "public", "Audience of the token")
	loginIDStr := flag.String("login-id", "", "Login ID (UUID) the token is issued for; random when empty")
	session := flag.String("session", "", "Session ID scoping pending 2FA challenges; random when empty")
	email := flag.String("email", "", "Email claim")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	outputFormat := flag.String("format", "compact", "Output format: compact, full, or debug")
	flag.Parse()

	loginID := uuid.New()
	if *loginIDStr != "" {
		parsed, err := uuid.Parse(*loginIDStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid login ID %q: %v\n", *loginIDStr, err)
			os.Exit(1)
		}
		loginID = parsed
	}

	tokenGen := tokengenerator.NewJwtTokenGenerator(*secret, *issuer, *audience)

	tokenStr, expiryTime, err := tokenGen.GenerateToken(loginID, *session, *expiry, tokengenerator.ExtraClaims{Email: *email})
	if err != nil {
		slog.Error("Failed to generate token", "err", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "full":
		fmt.Printf("Token: %s\nLogin ID: %s\nExpires: %s\n", tokenStr, loginID, expiryTime.Format(time.RFC3339))
	case "debug":
		claims, err := tokenGen.ParseToken(tokenStr)
		if err != nil {
			slog.Error("Failed to parse generated token", "err", err)
			fmt.Fprintf(os.Stderr, "Error: Failed to parse generated token: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("=== Token Information ===\n")
		fmt.Printf("Token: %s\n\n", tokenStr)
		fmt.Printf("=== Token Claims ===\n")
		claimsJSON, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Printf("%s\n\n", claimsJSON)
		fmt.Printf("Expires: %s\n", expiryTime.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
