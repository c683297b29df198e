package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Account is one connected brand page and social profile pair.
type Account struct {
	ID            int64
	UserID        sql.NullString
	PageID        string
	PageName      sql.NullString
	InstagramID   sql.NullString
	InstagramName sql.NullString
	AccessToken   sql.NullString
	Activo        bool
}

const accountColumns = `id, user_id, page_id, page_name, instagram_id, instagram_name, page_access_token, activo`

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.UserID, &a.PageID, &a.PageName, &a.InstagramID, &a.InstagramName, &a.AccessToken, &a.Activo)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByPageID finds the active account for a Facebook page id.
func (s *Store) GetAccountByPageID(ctx context.Context, pageID string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM cuentas_instagram
		WHERE page_id = $1 AND activo
	`, pageID)

	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by page_id: %w", err)
	}
	return account, nil
}

// GetAccountByInstagramID finds the active account for an Instagram
// professional-account id.
func (s *Store) GetAccountByInstagramID(ctx context.Context, instagramID string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM cuentas_instagram
		WHERE instagram_id = $1 AND activo
	`, instagramID)

	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by instagram_id: %w", err)
	}
	return account, nil
}

// GetAccountByEntryID resolves a webhook entry id, which may be either a
// page id or an Instagram id depending on the subscription.
func (s *Store) GetAccountByEntryID(ctx context.Context, entryID string) (*Account, error) {
	account, err := s.GetAccountByPageID(ctx, entryID)
	if err != nil || account != nil {
		return account, err
	}
	return s.GetAccountByInstagramID(ctx, entryID)
}

// ListOwnAccountIDs returns the page and profile ids of every active
// account, used to seed the anti-loop guard at startup.
func (s *Store) ListOwnAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_id, instagram_id
		FROM cuentas_instagram
		WHERE activo
	`)
	if err != nil {
		return nil, fmt.Errorf("listing own account ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var pageID string
		var instagramID sql.NullString
		if err := rows.Scan(&pageID, &instagramID); err != nil {
			return nil, fmt.Errorf("scanning account ids: %w", err)
		}
		ids = append(ids, pageID)
		if instagramID.Valid && instagramID.String != "" {
			ids = append(ids, instagramID.String)
		}
	}
	return ids, rows.Err()
}

// BrandID returns the identifier the brand's context rows are keyed by:
// the Instagram id when present, otherwise the page id.
func (a *Account) BrandID() string {
	if a.InstagramID.Valid && a.InstagramID.String != "" {
		return a.InstagramID.String
	}
	return a.PageID
}

// DisplayName returns the page name or a generic fallback.
func (a *Account) DisplayName() string {
	if a.PageName.Valid && a.PageName.String != "" {
		return a.PageName.String
	}
	return "Marca"
}
