package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/entity"
)

// DeletedScanFilter selects a page of the deletion archive. Page is 1-based.
type DeletedScanFilter struct {
	Page      int
	PageSize  int
	JobNumber string
}

type ScanRepository interface {
	AddScan(ctx context.Context, rec entity.ScanRecord) (*entity.ScanRecord, error)
	QRCodeExists(ctx context.Context, qrCode string) (bool, error)
	DeleteScan(ctx context.Context, qrCode string, palletID int64, operator string) (*entity.DeletedScan, error)
	ListDeletedScans(ctx context.Context, filter DeletedScanFilter) (*entity.DeletedScanPage, error)
}

type scanRepository struct {
	db     *DB
	logger *slog.Logger
	retain int
}

func NewScanRepository(db *DB, logger *slog.Logger) ScanRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &scanRepository{db: db, logger: logger, retain: constants.DeletedScansRetained}
}

// AddScan records a scan. A QR code already present anywhere is a conflict; the
// unique index on qr_code decides, so concurrent scans of one tag cannot both land.
func (r *scanRepository) AddScan(ctx context.Context, rec entity.ScanRecord) (*entity.ScanRecord, error) {
	if rec.ScanDate.IsZero() {
		rec.ScanDate = time.Now()
	}
	rec.ScanDate = rec.ScanDate.UTC().Truncate(time.Millisecond)

	row := r.db.sql.QueryRowContext(ctx, r.db.rebind(`
		INSERT INTO scanned_tags (job_number, part_id, qr_code, pallet_id, scan_date, total_quantity_job, scanned_by)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		rec.JobNumber, rec.PartID, rec.QRCode, rec.PalletID, toMillis(rec.ScanDate), rec.TotalQuantityJob, rec.ScannedBy)
	if err := row.Scan(&rec.ID); err != nil {
		if isUniqueViolation(err) {
			r.logger.Info("duplicate scan rejected", "qr_code", rec.QRCode, "operator", rec.ScannedBy)
			return nil, common.ConflictError(constants.MsgDuplicateQRCode)
		}
		r.logger.Error("failed to record scan", "qr_code", rec.QRCode, "error", err)
		return nil, common.NewAppError("DB_INSERT", "failed to record scan", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("scan recorded",
		"job_number", rec.JobNumber,
		"part_id", rec.PartID,
		"qr_code", rec.QRCode,
		"pallet_id", rec.PalletID,
		"operator", rec.ScannedBy,
	)
	return &rec, nil
}

func (r *scanRepository) QRCodeExists(ctx context.Context, qrCode string) (bool, error) {
	return qrCodeExists(ctx, r.db, r.db.sql, qrCode)
}

func qrCodeExists(ctx context.Context, db *DB, q querier, qrCode string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, db.rebind("SELECT COUNT(*) FROM scanned_tags WHERE qr_code = ?"), qrCode).Scan(&n); err != nil {
		return false, common.NewAppError("DB_QUERY", "failed to check qr code", errors.Join(common.ErrDatabase, err))
	}
	return n > 0, nil
}

// DeleteScan moves a scan into the deletion archive and trims the archive to the most
// recent entries, in one transaction.
func (r *scanRepository) DeleteScan(ctx context.Context, qrCode string, palletID int64, operator string) (*entity.DeletedScan, error) {
	var archived entity.DeletedScan
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		var (
			scanDate   int64
			palletName sql.NullString
		)
		row := tx.QueryRowContext(ctx, r.db.rebind(`
			SELECT s.job_number, s.part_id, s.qr_code, s.pallet_id, s.scan_date, s.total_quantity_job, p.name
			FROM scanned_tags s
			LEFT JOIN pallets p ON p.id = s.pallet_id
			WHERE s.qr_code = ? AND s.pallet_id = ?`), qrCode, palletID)
		err := row.Scan(&archived.JobNumber, &archived.PartID, &archived.QRCode, &archived.PalletID,
			&scanDate, &archived.TotalQuantityJob, &palletName)
		if errors.Is(err, sql.ErrNoRows) {
			return common.NotFoundError(constants.MsgScanNotFound)
		}
		if err != nil {
			return common.NewAppError("DB_QUERY", "failed to load scan", errors.Join(common.ErrDatabase, err))
		}
		archived.ScanDate = fromMillis(scanDate)
		archived.PalletName = palletName.String
		archived.DeletedAt = time.Now().UTC().Truncate(time.Millisecond)
		archived.DeletedBy = operator

		row = tx.QueryRowContext(ctx, r.db.rebind(`
			INSERT INTO deleted_scans (job_number, part_id, qr_code, scan_date, deleted_at, pallet_id, pallet_name, total_quantity_job, deleted_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			archived.JobNumber, archived.PartID, archived.QRCode, scanDate, toMillis(archived.DeletedAt),
			archived.PalletID, archived.PalletName, archived.TotalQuantityJob, archived.DeletedBy)
		if err := row.Scan(&archived.ID); err != nil {
			return common.NewAppError("DB_INSERT", "failed to archive scan", errors.Join(common.ErrDatabase, err))
		}

		if _, err := tx.ExecContext(ctx, r.db.rebind("DELETE FROM scanned_tags WHERE qr_code = ? AND pallet_id = ?"), qrCode, palletID); err != nil {
			return common.NewAppError("DB_DELETE", "failed to delete scan", errors.Join(common.ErrDatabase, err))
		}

		if _, err := tx.ExecContext(ctx, r.db.rebind(`
			DELETE FROM deleted_scans WHERE id NOT IN (
				SELECT id FROM deleted_scans ORDER BY deleted_at DESC, id DESC LIMIT ?
			)`), r.retain); err != nil {
			return common.NewAppError("DB_DELETE", "failed to trim deleted scans", errors.Join(common.ErrDatabase, err))
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("scan delete failed", "qr_code", qrCode, "pallet_id", palletID, "error", err)
		return nil, err
	}
	r.logger.Info("scan deleted", "qr_code", qrCode, "pallet_id", palletID, "operator", operator)
	return &archived, nil
}

func (r *scanRepository) ListDeletedScans(ctx context.Context, filter DeletedScanFilter) (*entity.DeletedScanPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}

	where := ""
	var args []any
	if filter.JobNumber != "" {
		where = "WHERE job_number = ?"
		args = append(args, filter.JobNumber)
	}

	page := &entity.DeletedScanPage{Page: filter.Page, PageSize: filter.PageSize, Data: make([]entity.DeletedScan, 0)}
	if err := r.db.sql.QueryRowContext(ctx, r.db.rebind("SELECT COUNT(*) FROM deleted_scans "+where), args...).Scan(&page.TotalCount); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to count deleted scans", errors.Join(common.ErrDatabase, err))
	}
	page.TotalPages = (page.TotalCount + filter.PageSize - 1) / filter.PageSize

	query := fmt.Sprintf(`
		SELECT id, job_number, part_id, qr_code, scan_date, deleted_at, pallet_id, pallet_name, total_quantity_job, deleted_by
		FROM deleted_scans %s
		ORDER BY deleted_at DESC, id DESC
		LIMIT ? OFFSET ?`, where)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list deleted scans", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d                 entity.DeletedScan
			scanDate, deleted int64
		)
		if err := rows.Scan(&d.ID, &d.JobNumber, &d.PartID, &d.QRCode, &scanDate, &deleted,
			&d.PalletID, &d.PalletName, &d.TotalQuantityJob, &d.DeletedBy); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to read deleted scan", errors.Join(common.ErrDatabase, err))
		}
		d.ScanDate = fromMillis(scanDate)
		d.DeletedAt = fromMillis(deleted)
		page.Data = append(page.Data, d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list deleted scans", errors.Join(common.ErrDatabase, err))
	}
	return page, nil
}
