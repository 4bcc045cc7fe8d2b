package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/md-rashed-zaman/counselbook/libs/auth"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/spf13/cobra"
)

// tokenCmd mints HS256 tokens for local development against JWT_SECRET.
func tokenCmd(load loader) *cobra.Command {
	var (
		subject string
		role    string
		email   string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.JWTSecret) == "" {
				return errors.New("JWT_SECRET is required to mint tokens")
			}
			if !model.Role(role).Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if subject == "" {
				subject = uuid.NewString()
			}
			now := time.Now()
			claims := auth.Claims{
				Role:  role,
				Email: email,
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   subject,
					Issuer:    cfg.JWTIssuer,
					IssuedAt:  jwt.NewNumericDate(now),
					ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				},
			}
			if cfg.JWTAudience != "" {
				claims.Audience = jwt.ClaimStrings{cfg.JWTAudience}
			}
			signed, err := auth.SignHS256(claims, cfg.JWTSecret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "User id (random uuid when empty)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleClient), "client, counsellor or admin")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
