package toolbar

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsedeck/backend/internal/models"
)

// AppRepository manages the per-organization OAuth client registrations
// backing the toolbar flow.
type AppRepository struct {
	pool *pgxpool.Pool
}

// NewAppRepository creates an OAuth application repository.
func NewAppRepository(pool *pgxpool.Pool) *AppRepository {
	return &AppRepository{pool: pool}
}

// GetOrCreate returns the organization's toolbar OAuth application, creating
// it on first use. Credentials are minted only when a new row is inserted; a
// second base URL for the same organization reuses the existing registration
// and appends the new redirect URI to it.
func (r *AppRepository) GetOrCreate(ctx context.Context, orgID uuid.UUID, redirectURI string) (*models.OAuthApplication, error) {
	app, err := r.getByOrg(ctx, orgID)
	if errors.Is(err, pgx.ErrNoRows) {
		clientID, tokenErr := randomToken("pdc")
		if tokenErr != nil {
			return nil, tokenErr
		}
		clientSecret, tokenErr := randomToken("pds")
		if tokenErr != nil {
			return nil, tokenErr
		}

		// A concurrent insert for the same org wins the conflict; the
		// re-select below picks up whichever row landed.
		const insertQ = `INSERT INTO oauth_applications (organization_id, name, client_id, client_secret, redirect_uris)
			VALUES ($1, 'Toolbar', $2, $3, $4)
			ON CONFLICT (organization_id) DO NOTHING`
		if _, err := r.pool.Exec(ctx, insertQ, orgID, clientID, clientSecret, redirectURI); err != nil {
			return nil, fmt.Errorf("create oauth application: %w", err)
		}
		app, err = r.getByOrg(ctx, orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("get oauth application: %w", err)
	}

	if !app.HasRedirectURI(redirectURI) {
		// The WHERE guard makes concurrent appends of the same URI idempotent.
		const appendQ = `UPDATE oauth_applications
			SET redirect_uris = TRIM(redirect_uris || ' ' || $2), updated_at = NOW()
			WHERE id = $1 AND NOT $2 = ANY(string_to_array(redirect_uris, ' '))`
		if _, err := r.pool.Exec(ctx, appendQ, app.ID, redirectURI); err != nil {
			return nil, fmt.Errorf("append redirect uri: %w", err)
		}
		const selectQ = `SELECT redirect_uris FROM oauth_applications WHERE id = $1`
		if err := r.pool.QueryRow(ctx, selectQ, app.ID).Scan(&app.RedirectURIs); err != nil {
			return nil, fmt.Errorf("reload redirect uris: %w", err)
		}
	}
	return app, nil
}

func (r *AppRepository) getByOrg(ctx context.Context, orgID uuid.UUID) (*models.OAuthApplication, error) {
	const q = `SELECT id, organization_id, name, client_id, client_secret, redirect_uris, created_at, updated_at
		FROM oauth_applications WHERE organization_id = $1`
	var app models.OAuthApplication
	err := r.pool.QueryRow(ctx, q, orgID).
		Scan(&app.ID, &app.OrganizationID, &app.Name, &app.ClientID, &app.ClientSecret,
			&app.RedirectURIs, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func randomToken(prefix string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return prefix + "_" + hex.EncodeToString(buf), nil
}
