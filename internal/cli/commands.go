package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"idbcrm/internal/partners/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/pkg/email"
	"idbcrm/pkg/platform/sentinel"
)

// EnvAdminPassword supplies the create-admin password when --password is omitted.
const EnvAdminPassword = "IDBCRM_ADMIN_PASSWORD"

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.Open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer b.Close()
			if b.DB == nil {
				return errors.New("migrate needs a database")
			}
			applied, err := postgres.Migrate(cmd.Context(), b.DB, b.Logger)
			if err != nil {
				return err
			}
			text := fmt.Sprintf("applied %d migration(s)", len(applied))
			if len(applied) > 0 {
				text += ": " + strings.Join(applied, ", ")
			}
			return output(cmd.OutOrStdout(), opts.Format, text, map[string]any{"applied": applied})
		},
	}
}

type createAdminFlags struct {
	email    string
	name     string
	mobile   string
	password string
}

func newCreateAdminCommand(opts *RootOptions) *cobra.Command {
	f := &createAdminFlags{}
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := f.password
			if password == "" {
				password = os.Getenv(EnvAdminPassword)
			}
			if password == "" {
				return fmt.Errorf("--password or %s is required", EnvAdminPassword)
			}
			b, err := opts.Open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer b.Close()

			p, err := b.Partners.Bootstrap(cmd.Context(), models.CreatePartnerInput{
				Name:     f.name,
				Email:    f.email,
				Mobile:   f.mobile,
				Password: password,
			})
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts.Format,
				fmt.Sprintf("created admin %s (%s)", p.Email, p.ID),
				map[string]any{"id": p.ID, "email": p.Email, "name": p.Name, "role": p.Role},
			)
		},
	}
	cmd.Flags().StringVar(&f.email, "email", "", "admin email address")
	cmd.Flags().StringVar(&f.name, "name", "", "display name (defaults to the email's local part)")
	cmd.Flags().StringVar(&f.mobile, "mobile", "", "mobile number")
	cmd.Flags().StringVar(&f.password, "password", "", "initial password (or set "+EnvAdminPassword+")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newIssueTokenCommand(opts *RootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue-token <email>",
		Short: "Issue a bearer token for an active partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.Open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer b.Close()

			p, err := b.Store.FindByEmail(cmd.Context(), email.Normalize(args[0]))
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return fmt.Errorf("no partner with email %q", args[0])
				}
				return err
			}
			if !p.Active {
				return fmt.Errorf("partner %s is deactivated", p.Email)
			}
			if ttl <= 0 {
				ttl = b.Config.Auth.TokenTTL
			}
			token, expires, err := b.Tokens.Issue(p.Actor(), ttl)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts.Format, token, map[string]any{
				"access_token": token,
				"token_type":   "Bearer",
				"expires_at":   expires.UTC(),
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TTL)")
	return cmd
}
