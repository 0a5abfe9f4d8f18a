package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/warden/internal/domain"
)

const areaColumns = `id, program, mcc, area_type, center_lat, center_lng, radius_miles,
	zip_code, city, reason, is_active, created_at`

// FetchRestrictedAreas returns the program's active areas for the merchant
// code and those that apply to every merchant code, oldest first.
func (r *SQLRepository) FetchRestrictedAreas(ctx context.Context, program, mcc string) ([]domain.RestrictedArea, error) {
	query := `
		SELECT ` + areaColumns + `
		FROM restricted_areas
		WHERE program = ? AND (mcc = ? OR mcc = '') AND is_active = 1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), program, mcc)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RestrictedArea
	for rows.Next() {
		var a domain.RestrictedArea
		var areaType string
		var active int
		if err := rows.Scan(
			&a.ID, &a.Program, &a.MCC, &areaType, &a.CenterLat, &a.CenterLng, &a.RadiusMiles,
			&a.ZipCode, &a.City, &a.Reason, &active, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.Type = domain.AreaType(areaType)
		a.Active = active == 1
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveRestrictedArea inserts or replaces a restricted area. A missing ID is generated.
func (r *SQLRepository) SaveRestrictedArea(ctx context.Context, area *domain.RestrictedArea) error {
	if area.Program == "" {
		return fmt.Errorf("%w: restricted area needs a program", ErrInvalidInput)
	}
	switch area.Type {
	case domain.AreaRadius:
		if area.RadiusMiles <= 0 {
			return fmt.Errorf("%w: radius area needs a positive radius", ErrInvalidInput)
		}
	case domain.AreaZipCode:
		if area.ZipCode == "" {
			return fmt.Errorf("%w: zip code area needs a zip code", ErrInvalidInput)
		}
	case domain.AreaCity:
		if area.City == "" {
			return fmt.Errorf("%w: city area needs a city", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown area type %q", ErrInvalidInput, area.Type)
	}

	if area.ID == "" {
		area.ID = uuid.New().String()
	}
	if area.CreatedAt.IsZero() {
		area.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO restricted_areas (` + areaColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			program = excluded.program,
			mcc = excluded.mcc,
			area_type = excluded.area_type,
			center_lat = excluded.center_lat,
			center_lng = excluded.center_lng,
			radius_miles = excluded.radius_miles,
			zip_code = excluded.zip_code,
			city = excluded.city,
			reason = excluded.reason,
			is_active = excluded.is_active
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		area.ID, area.Program, area.MCC, string(area.Type), area.CenterLat, area.CenterLng, area.RadiusMiles,
		area.ZipCode, area.City, area.Reason, boolToInt(area.Active), area.CreatedAt.UTC(),
	)
	return err
}
