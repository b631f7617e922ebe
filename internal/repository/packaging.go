package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/entity"
)

type PackagingRepository interface {
	RecordManifest(ctx context.Context, rec entity.PackagingRecord) (*entity.PackagingRecord, error)
	ListManifests(ctx context.Context, palletID int64) ([]entity.PackagingRecord, error)
}

type packagingRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewPackagingRepository(db *DB, logger *slog.Logger) PackagingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &packagingRepository{db: db, logger: logger}
}

func (r *packagingRepository) RecordManifest(ctx context.Context, rec entity.PackagingRecord) (*entity.PackagingRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Millisecond)

	row := r.db.sql.QueryRowContext(ctx, r.db.rebind(`
		INSERT INTO packaging_records (pallet_id, job_number, pallet_name, file_path, final, total_quantity, total_mass, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		rec.PalletID, rec.JobNumber, rec.PalletName, rec.FilePath, rec.Final,
		rec.TotalQuantity, rec.TotalMass, rec.CreatedBy, toMillis(rec.CreatedAt))
	if err := row.Scan(&rec.ID); err != nil {
		r.logger.Error("failed to record manifest", "pallet_id", rec.PalletID, "error", err)
		return nil, common.NewAppError("DB_INSERT", "failed to record manifest", errors.Join(common.ErrDatabase, err))
	}
	return &rec, nil
}

// ListManifests returns the manifests generated for a pallet, newest first.
func (r *packagingRepository) ListManifests(ctx context.Context, palletID int64) ([]entity.PackagingRecord, error) {
	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(`
		SELECT id, pallet_id, job_number, pallet_name, file_path, final, total_quantity, total_mass, created_by, created_at
		FROM packaging_records
		WHERE pallet_id = ?
		ORDER BY created_at DESC, id DESC`), palletID)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list manifests", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	out := make([]entity.PackagingRecord, 0)
	for rows.Next() {
		var (
			rec     entity.PackagingRecord
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.PalletID, &rec.JobNumber, &rec.PalletName, &rec.FilePath, &rec.Final,
			&rec.TotalQuantity, &rec.TotalMass, &rec.CreatedBy, &created); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to read manifest", errors.Join(common.ErrDatabase, err))
		}
		rec.CreatedAt = fromMillis(created)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list manifests", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}
