package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Assignee is a human who can approve rules: a user with a phone number.
type Assignee struct {
	ID        int64
	Nombre    string
	Telefono  string
	BrandID   string
	BrandName string
}

// ResolveAssignee finds the contactable human for a brand's approval
// requests. Precedence: the account's own connecting user when they have
// a phone number, then the first active administrator of the brand
// (matched by Instagram id, then page id) with a phone number.
// Finding nobody is not an error; the caller falls back to auto-approval.
func (s *Store) ResolveAssignee(ctx context.Context, account *Account) (*Assignee, error) {
	if account.UserID.Valid && account.UserID.String != "" {
		assignee, err := s.assigneeByUserID(ctx, account.UserID.String)
		if err != nil {
			return nil, err
		}
		if assignee != nil {
			return assignee, nil
		}
	}

	brandIDs := []string{}
	if account.InstagramID.Valid && account.InstagramID.String != "" {
		brandIDs = append(brandIDs, account.InstagramID.String)
	}
	brandIDs = append(brandIDs, account.PageID)

	for _, brandID := range brandIDs {
		assignee, err := s.adminWithPhone(ctx, brandID)
		if err != nil {
			return nil, err
		}
		if assignee != nil {
			return assignee, nil
		}
	}
	return nil, nil
}

func (s *Store) assigneeByUserID(ctx context.Context, userID string) (*Assignee, error) {
	var a Assignee
	var telefono, brandID, brandName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, nombre, telefono, id_marca, nombre_marca
		FROM usuarios
		WHERE id::text = $1 AND activo
	`, userID).Scan(&a.ID, &a.Nombre, &telefono, &brandID, &brandName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user %s: %w", userID, err)
	}
	if !telefono.Valid || telefono.String == "" {
		return nil, nil
	}
	a.Telefono = telefono.String
	a.BrandID = brandID.String
	a.BrandName = brandName.String
	return &a, nil
}

func (s *Store) adminWithPhone(ctx context.Context, brandID string) (*Assignee, error) {
	var a Assignee
	var telefono, idMarca, brandName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, nombre, telefono, id_marca, nombre_marca
		FROM usuarios
		WHERE tipo_usuario = 'adm' AND activo AND id_marca = $1
		      AND telefono IS NOT NULL AND telefono <> ''
		ORDER BY id
		LIMIT 1
	`, brandID).Scan(&a.ID, &a.Nombre, &telefono, &idMarca, &brandName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying admin for brand %s: %w", brandID, err)
	}
	a.Telefono = telefono.String
	a.BrandID = idMarca.String
	a.BrandName = brandName.String
	return &a, nil
}
