package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/noah-isme/pbis-api/pkg/config"
)

// NewService builds a read-only Google Sheets client. When an endpoint override is
// configured the client skips authentication, which is how tests and local emulators
// are wired.
func NewService(ctx context.Context, cfg config.SheetsConfig) (*sheetsapi.Service, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets spreadsheet id is not configured")
	}

	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}
