package vault

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

const (
	stsBody           = "Action=GetCallerIdentity&Version=2011-06-15"
	stsGlobalRegion   = "us-east-1"
	iamServerIDHeader = "X-Vault-AWS-IAM-Server-ID"
)

func defaultAWSCredentials(ctx context.Context, region string) (aws.CredentialsProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS credentials: %w", err)
	}
	return cfg.Credentials, nil
}

// stsEndpoint returns the GetCallerIdentity endpoint and signing region.
// The Vault aws auth backend must be configured with the same endpoint.
func stsEndpoint(region string) (string, string) {
	if region == "" || region == stsGlobalRegion {
		return "https://sts.amazonaws.com/", stsGlobalRegion
	}
	return fmt.Sprintf("https://sts.%s.amazonaws.com/", region), region
}

// iamLoginData signs an sts:GetCallerIdentity request that Vault replays to
// prove the caller's IAM identity.
func iamLoginData(ctx context.Context, creds aws.Credentials, region, serverID string, now time.Time) (map[string]interface{}, error) {
	endpoint, signingRegion := stsEndpoint(region)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(stsBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build sts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	if serverID != "" {
		req.Header.Set(iamServerIDHeader, serverID)
	}

	sum := sha256.Sum256([]byte(stsBody))
	if err := v4.NewSigner().SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), "sts", signingRegion, now); err != nil {
		return nil, fmt.Errorf("failed to sign sts request: %w", err)
	}

	headers, err := json.Marshal(req.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sts headers: %w", err)
	}

	return map[string]interface{}{
		"iam_http_request_method": http.MethodPost,
		"iam_request_url":         base64.StdEncoding.EncodeToString([]byte(endpoint)),
		"iam_request_body":        base64.StdEncoding.EncodeToString([]byte(stsBody)),
		"iam_request_headers":     base64.StdEncoding.EncodeToString(headers),
	}, nil
}
