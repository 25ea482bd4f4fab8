package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/intrinsic/internal/api/middleware"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token signed with auth.jwt_secret",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default auth.token_ttl)")
	tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ttl := tokenTTL
	if ttl == 0 {
		ttl = cfg.Auth.TokenTTL
	}
	token, err := middleware.NewToken(cfg.Auth.JWTSecret, tokenSubject, ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
