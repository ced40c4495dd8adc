package googlesheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ServiceAccountKey represents the structure of a service account JSON key file
type ServiceAccountKey struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// NewWithJSONKeyFile creates a Grid from a service account key file. An
// empty path falls back to GOOGLE_APPLICATION_CREDENTIALS.
func NewWithJSONKeyFile(ctx context.Context, config Config, jsonPath string) (*Grid, error) {
	if jsonPath == "" {
		jsonPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if jsonPath == "" {
			return nil, errors.New("no JSON key file path provided and GOOGLE_APPLICATION_CREDENTIALS not set")
		}
	}

	ts, err := CreateTokenSource(ctx, jsonPath)
	if err != nil {
		return nil, err
	}
	return NewGrid(ctx, config, option.WithTokenSource(ts))
}

// NewWithJSONKeyData creates a Grid from service account key JSON
func NewWithJSONKeyData(ctx context.Context, config Config, jsonData []byte) (*Grid, error) {
	ts, err := CreateTokenSource(ctx, jsonData)
	if err != nil {
		return nil, err
	}
	return NewGrid(ctx, config, option.WithTokenSource(ts))
}

// NewWithServiceAccountKey creates a Grid from a client email and PEM key.
// Bad credentials surface on the first call.
func NewWithServiceAccountKey(ctx context.Context, config Config, email string, privateKey string) (*Grid, error) {
	ts, err := CreateTokenSource(ctx, &ServiceAccountKey{ClientEmail: email, PrivateKey: privateKey})
	if err != nil {
		return nil, err
	}
	return NewGrid(ctx, config, option.WithTokenSource(ts))
}

// NewWithDefaultCredentials creates a Grid using Application Default
// Credentials: GOOGLE_APPLICATION_CREDENTIALS, gcloud credentials or the
// GCE metadata server
func NewWithDefaultCredentials(ctx context.Context, config Config) (*Grid, error) {
	ts, err := google.DefaultTokenSource(ctx, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to get default token source: %w", err)
	}
	return NewGrid(ctx, config, option.WithTokenSource(ts))
}

// ParseServiceAccountJSON parses a service account JSON file or data
func ParseServiceAccountJSON(jsonData []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(jsonData, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}

	if key.Type != "service_account" {
		return nil, fmt.Errorf("invalid key type: %s (expected: service_account)", key.Type)
	}

	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, errors.New("missing required fields in service account key")
	}

	return &key, nil
}

// CreateTokenSource creates an oauth2.TokenSource from a key file path
// (string), key JSON ([]byte) or a parsed *ServiceAccountKey
func CreateTokenSource(ctx context.Context, credentials interface{}) (oauth2.TokenSource, error) {
	switch cred := credentials.(type) {
	case string:
		jsonData, err := os.ReadFile(cred)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return tokenSourceFromJSON(ctx, jsonData)
	case []byte:
		return tokenSourceFromJSON(ctx, cred)
	case *ServiceAccountKey:
		return tokenSourceFromKey(ctx, cred), nil
	default:
		return nil, fmt.Errorf("unsupported credential type: %T", credentials)
	}
}

func tokenSourceFromJSON(ctx context.Context, jsonData []byte) (oauth2.TokenSource, error) {
	creds, err := google.CredentialsFromJSON(ctx, jsonData, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}

func tokenSourceFromKey(ctx context.Context, key *ServiceAccountKey) oauth2.TokenSource {
	tokenURL := key.TokenURI
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}
	cfg := &jwt.Config{
		Email:      key.ClientEmail,
		PrivateKey: []byte(key.PrivateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   tokenURL,
	}
	return cfg.TokenSource(ctx)
}
