package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"

	"github.com/ent0n29/voiceagent/internal/config"
)

// credentialSource names where Google Cloud credentials came from.
type credentialSource string

const (
	credentialsInline credentialSource = "inline-json"
	credentialsFile   credentialSource = "file"
	credentialsADC    credentialSource = "application-default"
)

// clientOptions resolves Google Cloud credentials for the speech clients.
// An inline JSON blob wins over a file path; with neither, the client
// libraries fall back to Application Default Credentials.
func clientOptions(cfg config.Config) ([]option.ClientOption, credentialSource, error) {
	if raw := strings.TrimSpace(cfg.GoogleCredentialsJSON); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, "", fmt.Errorf("GOOGLE_CREDENTIALS_JSON is not valid JSON")
		}
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}, credentialsInline, nil
	}
	if path := strings.TrimSpace(cfg.GoogleCredentialsFile); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, "", fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsFile(path)}, credentialsFile, nil
	}
	return nil, credentialsADC, nil
}
