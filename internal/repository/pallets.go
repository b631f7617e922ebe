package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/entity"
)

type PalletRepository interface {
	ListPallets(ctx context.Context, jobNumber string) ([]entity.Pallet, error)
	GetPallet(ctx context.Context, id int64) (*entity.Pallet, error)
	CreatePallet(ctx context.Context, jobNumber string) (*entity.Pallet, error)
	RenamePallet(ctx context.Context, id int64, name string) error
	DeletePallet(ctx context.Context, id int64) error
	ListUnscannedPallets(ctx context.Context) ([]entity.Pallet, error)
	PalletContents(ctx context.Context, id int64) ([]entity.PalletItem, error)
	PalletPartQuantities(ctx context.Context, id int64) ([]entity.PartQuantity, error)
}

type palletRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewPalletRepository(db *DB, logger *slog.Logger) PalletRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &palletRepository{db: db, logger: logger}
}

const palletColumns = `p.id, p.job_number, p.name, p.sequence_number, p.created_at,
	(SELECT COUNT(*) FROM scanned_tags s WHERE s.pallet_id = p.id)`

func scanPallet(row interface{ Scan(dest ...any) error }) (entity.Pallet, error) {
	var (
		p       entity.Pallet
		created int64
	)
	if err := row.Scan(&p.ID, &p.JobNumber, &p.Name, &p.SequenceNumber, &created, &p.ScannedItems); err != nil {
		return entity.Pallet{}, err
	}
	p.CreatedAt = fromMillis(created)
	return p, nil
}

func (r *palletRepository) queryPallets(ctx context.Context, query string, args ...any) ([]entity.Pallet, error) {
	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list pallets", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	out := make([]entity.Pallet, 0)
	for rows.Next() {
		p, err := scanPallet(rows)
		if err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to read pallet", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list pallets", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

func (r *palletRepository) ListPallets(ctx context.Context, jobNumber string) ([]entity.Pallet, error) {
	return r.queryPallets(ctx,
		"SELECT "+palletColumns+" FROM pallets p WHERE p.job_number = ? ORDER BY p.sequence_number",
		jobNumber)
}

func (r *palletRepository) ListUnscannedPallets(ctx context.Context) ([]entity.Pallet, error) {
	return r.queryPallets(ctx,
		"SELECT "+palletColumns+` FROM pallets p
		WHERE NOT EXISTS (SELECT 1 FROM scanned_tags s WHERE s.pallet_id = p.id)
		ORDER BY p.job_number, p.sequence_number`)
}

func (r *palletRepository) GetPallet(ctx context.Context, id int64) (*entity.Pallet, error) {
	return getPallet(ctx, r.db, r.db.sql, id)
}

func getPallet(ctx context.Context, db *DB, q querier, id int64) (*entity.Pallet, error) {
	row := q.QueryRowContext(ctx, db.rebind("SELECT "+palletColumns+" FROM pallets p WHERE p.id = ?"), id)
	p, err := scanPallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError(constants.MsgPalletNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to load pallet", errors.Join(common.ErrDatabase, err))
	}
	return &p, nil
}

// CreatePallet appends a pallet to the job, named PAL{n} with n the next sequence
// number of the job.
func (r *palletRepository) CreatePallet(ctx context.Context, jobNumber string) (*entity.Pallet, error) {
	var created *entity.Pallet
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		var next int
		row := tx.QueryRowContext(ctx,
			r.db.rebind("SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM pallets WHERE job_number = ?"), jobNumber)
		if err := row.Scan(&next); err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		p := entity.Pallet{
			JobNumber:      jobNumber,
			Name:           constants.PalletNamePrefix + strconv.Itoa(next),
			SequenceNumber: next,
			CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
		}
		row = tx.QueryRowContext(ctx,
			r.db.rebind("INSERT INTO pallets (job_number, name, sequence_number, created_at) VALUES (?, ?, ?, ?) RETURNING id"),
			p.JobNumber, p.Name, p.SequenceNumber, toMillis(p.CreatedAt))
		if err := row.Scan(&p.ID); err != nil {
			return fmt.Errorf("insert pallet: %w", err)
		}
		created = &p
		return nil
	})
	if err != nil {
		r.logger.Error("failed to create pallet", "job_number", jobNumber, "error", err)
		return nil, common.NewAppError("DB_INSERT", "failed to create pallet", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("pallet created", "job_number", jobNumber, "pallet_id", created.ID, "name", created.Name)
	return created, nil
}

func (r *palletRepository) RenamePallet(ctx context.Context, id int64, name string) error {
	res, err := r.db.sql.ExecContext(ctx, r.db.rebind("UPDATE pallets SET name = ? WHERE id = ?"), name, id)
	if err != nil {
		return common.NewAppError("DB_UPDATE", "failed to rename pallet", errors.Join(common.ErrDatabase, err))
	}
	return requireAffected(res, constants.MsgPalletNotFound)
}

// DeletePallet removes an empty pallet. Pallets holding scans are refused.
func (r *palletRepository) DeletePallet(ctx context.Context, id int64) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		var scans int
		if err := tx.QueryRowContext(ctx, r.db.rebind("SELECT COUNT(*) FROM scanned_tags WHERE pallet_id = ?"), id).Scan(&scans); err != nil {
			return common.NewAppError("DB_QUERY", "failed to count pallet scans", errors.Join(common.ErrDatabase, err))
		}
		if scans > 0 {
			return common.ConflictError(fmt.Sprintf("la palette contient %d scan(s)", scans))
		}
		res, err := tx.ExecContext(ctx, r.db.rebind("DELETE FROM pallets WHERE id = ?"), id)
		if err != nil {
			return common.NewAppError("DB_DELETE", "failed to delete pallet", errors.Join(common.ErrDatabase, err))
		}
		return requireAffected(res, constants.MsgPalletNotFound)
	})
}

func (r *palletRepository) PalletContents(ctx context.Context, id int64) ([]entity.PalletItem, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		r.db.rebind("SELECT part_id, qr_code, scan_date FROM scanned_tags WHERE pallet_id = ? ORDER BY scan_date DESC, id DESC"), id)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list pallet contents", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	out := make([]entity.PalletItem, 0)
	for rows.Next() {
		var (
			it   entity.PalletItem
			date int64
		)
		if err := rows.Scan(&it.PartID, &it.QRCode, &date); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to read pallet item", errors.Join(common.ErrDatabase, err))
		}
		it.ScanDate = fromMillis(date)
		out = append(out, it)
	}
	return out, rows.Err()
}

// PalletPartQuantities counts the scans per part on a pallet, largest first.
func (r *palletRepository) PalletPartQuantities(ctx context.Context, id int64) ([]entity.PartQuantity, error) {
	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(`
		SELECT part_id, COUNT(*) AS quantity
		FROM scanned_tags
		WHERE pallet_id = ?
		GROUP BY part_id
		ORDER BY quantity DESC, part_id`), id)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to group pallet parts", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	out := make([]entity.PartQuantity, 0)
	for rows.Next() {
		var pq entity.PartQuantity
		if err := rows.Scan(&pq.PartID, &pq.Quantity); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to read part quantity", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, pq)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return common.NewAppError("DB_RESULT", "failed to read affected rows", errors.Join(common.ErrDatabase, err))
	}
	if n == 0 {
		return common.NotFoundError(notFound)
	}
	return nil
}
