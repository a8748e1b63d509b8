// Package auth verifies plaintext credentials against delimited tables.
package auth

import (
	"context"
	"errors"
	"fmt"

	"gps-toll-system/logger"
	"gps-toll-system/models"
	"gps-toll-system/tables"
)

// ErrInvalidCredentials is returned when no row matches the pair.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Table names a credential resource and whether its first line is a header.
type Table struct {
	Name   string
	Header bool
}

type Verifier struct {
	src tables.Source
	log logger.ILogger
}

func NewVerifier(src tables.Source, log logger.ILogger) *Verifier {
	return &Verifier{src: src, log: log}
}

// Verify returns the first row whose username and password both equal the
// given values exactly. Later rows with the same username are ignored.
func (v *Verifier) Verify(ctx context.Context, table Table, username, password string) (models.Credential, error) {
	text, err := v.src.Fetch(ctx, table.Name)
	if err != nil {
		return models.Credential{}, fmt.Errorf("load credentials: %w", err)
	}

	creds, skipped := tables.DecodeCredentials(tables.Parse(text, table.Header))
	for _, s := range skipped {
		v.log.Warning("skipping credential row", logger.String("table", table.Name), logger.Error(s))
	}

	var match *models.Credential
	seen := 0
	for i := range creds {
		if creds[i].Username != username {
			continue
		}
		seen++
		if match == nil && creds[i].Password == password {
			match = &creds[i]
		}
	}
	if seen > 1 {
		v.log.Warning("duplicate username in credential table",
			logger.String("table", table.Name),
			logger.String("username", username),
			logger.Int("rows", seen),
		)
	}
	if match == nil {
		return models.Credential{}, ErrInvalidCredentials
	}
	return *match, nil
}
