package vault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/hashicorp/vault/api"

	"github.com/systmms/dsvault/internal/config"
	dserrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/logging"
	"github.com/systmms/dsvault/internal/secure"
	"github.com/systmms/dsvault/internal/tokenstore"
)

// Names of the protected values an Authenticator reads.
const (
	CredToken    = "token"
	CredPassword = "password"
	CredSecretID = "secret_id"
)

// LoginResult is the token issued by a successful login.
type LoginResult struct {
	Method    string
	Token     string
	Accessor  string
	Policies  []string
	Renewable bool
	TTL       time.Duration
}

// Entry converts the result into a keyring entry.
func (r *LoginResult) Entry(now time.Time) tokenstore.Entry {
	return tokenstore.NewEntry(r.Method, r.Token, r.Accessor, r.Policies, r.Renewable, r.TTL, now)
}

// Authenticator logs a client in with the configured auth method.
type Authenticator struct {
	client   *api.Client
	cfg      config.VaultConfig
	creds    *secure.Credentials
	awsCreds aws.CredentialsProvider
	logger   *logging.Logger
	now      func() time.Time
}

// NewAuthenticator creates an authenticator. creds holds the secrets for
// the method; see CredentialsFromConfig and MissingCredential.
func NewAuthenticator(client *api.Client, cfg config.VaultConfig, creds *secure.Credentials, logger *logging.Logger) *Authenticator {
	if creds == nil {
		creds = secure.NewCredentials()
	}
	return &Authenticator{
		client: client,
		cfg:    cfg,
		creds:  creds,
		logger: logger,
		now:    time.Now,
	}
}

// WithAWSCredentials replaces the default AWS credential chain used by aws
// login.
func (a *Authenticator) WithAWSCredentials(p aws.CredentialsProvider) *Authenticator {
	a.awsCreds = p
	return a
}

// CredentialsFromConfig protects the secrets present in cfg.
func CredentialsFromConfig(cfg config.VaultConfig) (*secure.Credentials, error) {
	creds := secure.NewCredentials()
	for name, value := range map[string]string{
		CredToken:    cfg.Token,
		CredPassword: cfg.Password,
		CredSecretID: cfg.SecretID,
	} {
		if err := creds.SetString(name, value); err != nil {
			creds.Destroy()
			return nil, err
		}
	}
	return creds, nil
}

// MissingCredential names the secret the method still needs, or "" when
// creds is complete.
func MissingCredential(cfg config.VaultConfig, creds *secure.Credentials) string {
	var name string
	switch cfg.AuthMethod {
	case MethodUserpass, MethodLDAP:
		name = CredPassword
	case MethodAppRole:
		name = CredSecretID
	default:
		return ""
	}
	if creds != nil && creds.Has(name) {
		return ""
	}
	return name
}

// Login authenticates and attaches the resulting token to the client.
func (a *Authenticator) Login(ctx context.Context) (*LoginResult, error) {
	if err := ValidateAuth(a.cfg); err != nil {
		return nil, err
	}

	method := a.cfg.AuthMethod
	a.debug("Authenticating to %s with %s", a.cfg.Address, method)

	var (
		secret *api.Secret
		err    error
	)
	switch method {
	case MethodToken:
		secret, err = a.loginToken(ctx)
	case MethodUserpass, MethodLDAP:
		secret, err = a.loginUserpass(ctx)
	case MethodAppRole:
		secret, err = a.loginAppRole(ctx)
	case MethodKubernetes:
		secret, err = a.loginKubernetes(ctx)
	case MethodAWS:
		secret, err = a.loginAWS(ctx)
	}
	if err != nil {
		return nil, dserrors.LoginError(method, err)
	}

	result, err := resultFrom(method, secret)
	if err != nil {
		return nil, dserrors.LoginError(method, err)
	}
	a.client.SetToken(result.Token)
	a.debug("Authenticated as %s (policies: %s)", logging.MaskToken(result.Token), strings.Join(result.Policies, ", "))
	return result, nil
}

// ValidateToken checks that the client's current token is still accepted.
func (a *Authenticator) ValidateToken(ctx context.Context) (*LoginResult, error) {
	secret, err := a.client.Auth().Token().LookupSelfWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return resultFrom(MethodToken, secret)
}

func (a *Authenticator) loginToken(ctx context.Context) (*api.Secret, error) {
	if a.creds.Has(CredToken) {
		err := a.creds.Use(CredToken, func(token string) error {
			a.client.SetToken(token)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if a.client.Token() == "" {
		return nil, fmt.Errorf("no token provided")
	}
	return a.client.Auth().Token().LookupSelfWithContext(ctx)
}

func (a *Authenticator) loginUserpass(ctx context.Context) (*api.Secret, error) {
	path := fmt.Sprintf("auth/%s/login/%s", AuthMount(a.cfg), a.cfg.Username)

	var secret *api.Secret
	err := a.creds.Use(CredPassword, func(password string) error {
		var err error
		secret, err = a.performLogin(ctx, path, map[string]interface{}{"password": password})
		return err
	})
	return secret, err
}

func (a *Authenticator) loginAppRole(ctx context.Context) (*api.Secret, error) {
	path := fmt.Sprintf("auth/%s/login", AuthMount(a.cfg))
	data := map[string]interface{}{"role_id": a.cfg.RoleID}
	a.debug("Using approle role_id %s", logging.Secret(a.cfg.RoleID))

	if !a.creds.Has(CredSecretID) {
		// roles with bind_secret_id=false accept role_id alone
		return a.performLogin(ctx, path, data)
	}

	var secret *api.Secret
	err := a.creds.Use(CredSecretID, func(secretID string) error {
		data["secret_id"] = secretID
		var err error
		secret, err = a.performLogin(ctx, path, data)
		return err
	})
	return secret, err
}

func (a *Authenticator) loginKubernetes(ctx context.Context) (*api.Secret, error) {
	tokenPath := a.cfg.K8sTokenPath
	if tokenPath == "" {
		tokenPath = DefaultK8sTokenPath
	}

	jwt, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account token: %w", err)
	}

	return a.performLogin(ctx, fmt.Sprintf("auth/%s/login", AuthMount(a.cfg)), map[string]interface{}{
		"role": a.cfg.Role,
		"jwt":  strings.TrimSpace(string(jwt)),
	})
}

func (a *Authenticator) loginAWS(ctx context.Context) (*api.Secret, error) {
	provider := a.awsCreds
	if provider == nil {
		var err error
		provider, err = defaultAWSCredentials(ctx, a.cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
	}

	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}

	data, err := iamLoginData(ctx, creds, a.cfg.AWSRegion, a.cfg.AWSHeaderValue, a.now())
	if err != nil {
		return nil, err
	}
	data["role"] = a.cfg.Role

	return a.performLogin(ctx, fmt.Sprintf("auth/%s/login", AuthMount(a.cfg)), data)
}

// performLogin handles the common login workflow
func (a *Authenticator) performLogin(ctx context.Context, path string, data map[string]interface{}) (*api.Secret, error) {
	// login endpoints are unauthenticated; a stale token must not be sent
	a.client.ClearToken()

	secret, err := a.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return nil, fmt.Errorf("login request to %s failed: %w", path, err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return nil, fmt.Errorf("no client token in %s response", path)
	}
	return secret, nil
}

func resultFrom(method string, secret *api.Secret) (*LoginResult, error) {
	if secret == nil {
		return nil, fmt.Errorf("empty response from vault")
	}

	token, err := secret.TokenID()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("no token in response")
	}
	accessor, err := secret.TokenAccessor()
	if err != nil {
		return nil, err
	}
	policies, err := secret.TokenPolicies()
	if err != nil {
		return nil, err
	}
	renewable, err := secret.TokenIsRenewable()
	if err != nil {
		return nil, err
	}
	ttl, err := secret.TokenTTL()
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Method:    method,
		Token:     token,
		Accessor:  accessor,
		Policies:  policies,
		Renewable: renewable,
		TTL:       ttl,
	}, nil
}

func (a *Authenticator) debug(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(format, args...)
	}
}
