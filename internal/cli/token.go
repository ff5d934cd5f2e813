package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"trivia-quiz-service/internal/auth"
	"trivia-quiz-service/internal/config"
)

// NewTokenCmd mints a bearer token for local development and testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a JWT for a quiz owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			issuer, err := newIssuer(cfg)
			if err != nil {
				return err
			}
			if userID == "" {
				userID = uuid.NewString()
			}
			token, err := issuer.Issue(userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user:  %s\ntoken: %s\n", userID, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner id to embed (random when empty)")
	return cmd
}

func newIssuer(cfg config.Config) (*auth.Issuer, error) {
	return auth.NewIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
}
