package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	apperrors "github.com/kavach-app/kavach/internal/errors"
	"github.com/kavach-app/kavach/internal/data/pgxutil"
	"github.com/kavach-app/kavach/internal/ports"
)

// ProfileRepo stores profile documents in the profiles table and implements ports.ProfileStore.
type ProfileRepo struct {
	DB    *sql.DB
	Clock TimeProvider
}

var _ ports.ProfileStore = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, Clock: SystemClock}
}

const selectProfile = `
	SELECT email, role, created_at, display_name, phone_number, photo_url,
	       station_id, station_name, extra
	FROM profiles
	WHERE id = $1`

// GetProfile returns the document stored for uid, or domainauth.ErrProfileNotFound.
func (r *ProfileRepo) GetProfile(ctx context.Context, uid string) (domainauth.ProfileDocument, error) {
	if strings.TrimSpace(uid) == "" {
		return domainauth.ProfileDocument{}, ErrProfileIDRequired
	}

	var (
		doc                    domainauth.ProfileDocument
		stationID, stationName sql.NullString
		extra                  []byte
	)
	err := r.DB.QueryRowContext(ctx, selectProfile, uid).Scan(
		&doc.Email, &doc.Role, &doc.CreatedAt, &doc.DisplayName, &doc.PhoneNumber, &doc.PhotoURL,
		&stationID, &stationName, &extra,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domainauth.ProfileDocument{}, domainauth.ErrProfileNotFound
	}
	if err != nil {
		return domainauth.ProfileDocument{}, fmt.Errorf("get profile: %w", apperrors.MapDBError(err))
	}

	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.StationID = stationID.String
	doc.StationName = stationName.String
	if len(extra) > 0 {
		var m map[string]string
		if err := json.Unmarshal(extra, &m); err != nil {
			return domainauth.ProfileDocument{}, fmt.Errorf("decode profile extra: %w", err)
		}
		if len(m) > 0 {
			doc.Extra = m
		}
	}
	return doc, nil
}

// SetProfile creates or replaces the document for uid.
func (r *ProfileRepo) SetProfile(ctx context.Context, uid string, doc domainauth.ProfileDocument) error {
	return r.upsert(ctx, r.DB, uid, doc)
}

const upsertProfile = `
	INSERT INTO profiles (id, email, role, display_name, phone_number, photo_url,
	                      station_id, station_name, extra, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		email = EXCLUDED.email,
		role = EXCLUDED.role,
		display_name = EXCLUDED.display_name,
		phone_number = EXCLUDED.phone_number,
		photo_url = EXCLUDED.photo_url,
		station_id = EXCLUDED.station_id,
		station_name = EXCLUDED.station_name,
		extra = EXCLUDED.extra,
		updated_at = EXCLUDED.updated_at`

func (r *ProfileRepo) upsert(ctx context.Context, ex pgxutil.Execer, uid string, doc domainauth.ProfileDocument) error {
	if strings.TrimSpace(uid) == "" {
		return ErrProfileIDRequired
	}
	extra := []byte("{}")
	if len(doc.Extra) > 0 {
		b, err := json.Marshal(doc.Extra)
		if err != nil {
			return fmt.Errorf("encode profile extra: %w", err)
		}
		extra = b
	}

	now := clockOrDefault(r.Clock).Now().UTC()
	createdAt := doc.CreatedAt.UTC()
	if doc.CreatedAt.IsZero() {
		createdAt = now
	}
	_, err := ex.ExecContext(ctx, upsertProfile,
		uid, doc.Email, doc.Role, doc.DisplayName, doc.PhoneNumber, doc.PhotoURL,
		nullable(doc.StationID), nullable(doc.StationName), extra, createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("set profile: %w", apperrors.MapDBError(err))
	}
	return nil
}

func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
