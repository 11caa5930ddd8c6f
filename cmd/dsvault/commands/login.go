package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/dsvault/internal/config"
	dserrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/logging"
	"github.com/systmms/dsvault/internal/tokenstore"
	"github.com/systmms/dsvault/internal/vault"
	"golang.org/x/term"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var (
		method  string
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate to Vault and store the token",
		Long: `Authenticate to Vault with the configured auth method and store the
issued token in the OS keyring (macOS Keychain, Secret Service, Windows
Credential Manager). Later commands use the stored token when VAULT_TOKEN
and vault.token are unset.

Supported methods: token, userpass, ldap, approle, kubernetes, aws.

The password (userpass, ldap) or secret ID (approle) is prompted for when
it is not configured, unless --non-interactive is set.

Examples:
  dsvault login
  dsvault login --method userpass
  VAULT_TOKEN=hvs.xxx dsvault login --method token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			vcfg, err := cfg.Vault()
			if err != nil {
				return err
			}
			if method != "" {
				vcfg.AuthMethod = strings.ToLower(method)
			}
			if err := vault.ValidateAuth(vcfg); err != nil {
				return err
			}

			creds, err := vault.CredentialsFromConfig(vcfg)
			if err != nil {
				return err
			}
			defer creds.Destroy()

			if missing := vault.MissingCredential(vcfg, creds); missing != "" {
				if cfg.NonInteractive {
					if missing == vault.CredPassword {
						return dserrors.UserError{
							Message:    fmt.Sprintf("No password configured for %s login", vcfg.AuthMethod),
							Suggestion: "Set vault.password in dsvault.yaml or run without --non-interactive",
						}
					}
					cfg.Logger.Debug("No %s configured, logging in with role_id only", missing)
				} else {
					value, err := prompt(cmd.InOrStdin(), cmd.ErrOrStderr(), promptLabel(missing))
					if err != nil {
						return err
					}
					if err := creds.SetString(missing, value); err != nil {
						return err
					}
				}
			}

			client, err := vault.NewClient(vcfg)
			if err != nil {
				return err
			}

			result, err := vault.NewAuthenticator(client, vcfg, creds, cfg.Logger).Login(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Authenticated with %s\n", result.Method)
			_, _ = fmt.Fprintf(out, "  token:    %s\n", logging.MaskToken(result.Token))
			_, _ = fmt.Fprintf(out, "  policies: %s\n", strings.Join(result.Policies, ", "))
			if result.TTL > 0 {
				_, _ = fmt.Fprintf(out, "  ttl:      %s\n", result.TTL)
			} else {
				_, _ = fmt.Fprintf(out, "  ttl:      never expires\n")
			}

			if noStore {
				return nil
			}

			account := tokenstore.Account(vcfg.Address, vcfg.Namespace)
			if err := newTokenStore().Save(account, result.Entry(time.Now())); err != nil {
				return dserrors.UserError{
					Message:    "Failed to store the token in the OS keyring",
					Details:    err.Error(),
					Suggestion: "Unlock your keyring, or export the token as VAULT_TOKEN and use --no-store",
					Err:        err,
				}
			}
			_, _ = fmt.Fprintf(out, "Token stored in keyring for %s\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "Auth method to use instead of vault.auth_method")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not save the token in the keyring")

	return cmd
}

func promptLabel(credential string) string {
	switch credential {
	case vault.CredSecretID:
		return "Secret ID"
	default:
		return "Password"
	}
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	_, _ = fmt.Fprintf(out, "%s: ", label)

	var line string
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
		line = string(b)
	} else {
		var err error
		line, err = bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
	}
	_, _ = fmt.Fprintln(out)

	value := strings.TrimRight(line, "\r\n")
	if value == "" {
		return "", dserrors.UserError{
			Message:    fmt.Sprintf("%s cannot be empty", label),
			Suggestion: "Enter a value, or configure it in dsvault.yaml",
		}
	}
	return value, nil
}
