package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/entity"
)

// StatsRepository serves the read-only dashboard views over recorded scans.
type StatsRepository interface {
	ListJobSummaries(ctx context.Context) ([]entity.JobSummary, error)
	JobScans(ctx context.Context, jobNumber string) ([]entity.PartScan, error)
	JobPartSummaries(ctx context.Context, jobNumber string) ([]entity.PartScanSummary, error)
	PartScans(ctx context.Context, jobNumber, partID string) ([]entity.PartScan, error)
	DashboardStats(ctx context.Context) (*entity.DashboardStats, error)
}

type statsRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewStatsRepository(db *DB, logger *slog.Logger) StatsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &statsRepository{db: db, logger: logger}
}

func (r *statsRepository) ListJobSummaries(ctx context.Context) ([]entity.JobSummary, error) {
	rows, err := r.db.sql.QueryContext(ctx, `
		SELECT job_number,
		       COUNT(DISTINCT part_id),
		       COUNT(qr_code),
		       COUNT(DISTINCT pallet_id),
		       MAX(total_quantity_job),
		       MAX(scan_date)
		FROM scanned_tags
		GROUP BY job_number
		ORDER BY MAX(scan_date) DESC`)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to summarise jobs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	out := make([]entity.JobSummary, 0)
	for rows.Next() {
		var (
			s    entity.JobSummary
			last int64
		)
		if err := rows.Scan(&s.JobNumber, &s.TotalParts, &s.TotalScanned, &s.TotalPallets, &s.TotalExpected, &last); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to read job summary", errors.Join(common.ErrDatabase, err))
		}
		s.LastScanDate = fromMillis(last)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to summarise jobs", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

// JobScans lists every scan of a job with its pallet, newest first.
func (r *statsRepository) JobScans(ctx context.Context, jobNumber string) ([]entity.PartScan, error) {
	return r.partScans(ctx, "WHERE s.job_number = ?", jobNumber)
}

func (r *statsRepository) PartScans(ctx context.Context, jobNumber, partID string) ([]entity.PartScan, error) {
	scans, err := r.partScans(ctx, "WHERE s.job_number = ? AND s.part_id = ?", jobNumber, partID)
	if err != nil {
		return nil, err
	}
	for i := range scans {
		scans[i].PartID = ""
	}
	return scans, nil
}

func (r *statsRepository) partScans(ctx context.Context, where string, args ...any) ([]entity.PartScan, error) {
	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(`
		SELECT s.part_id, s.qr_code, p.name, s.scan_date, s.scanned_by
		FROM scanned_tags s
		JOIN pallets p ON p.id = s.pallet_id
		`+where+`
		ORDER BY s.scan_date DESC, s.id DESC`), args...)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list scans", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	out := make([]entity.PartScan, 0)
	for rows.Next() {
		var (
			s    entity.PartScan
			date int64
		)
		if err := rows.Scan(&s.PartID, &s.QRCode, &s.PalletName, &date, &s.ScannedBy); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to read scan", errors.Join(common.ErrDatabase, err))
		}
		s.ScanDate = fromMillis(date)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list scans", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

// JobPartSummaries groups the scans of a job by part, most recently scanned part
// first. Pallet names are listed once each, in order of most recent use.
func (r *statsRepository) JobPartSummaries(ctx context.Context, jobNumber string) ([]entity.PartScanSummary, error) {
	scans, err := r.JobScans(ctx, jobNumber)
	if err != nil {
		return nil, err
	}
	return SummarizeScans(scans, nil), nil
}

// SummarizeScans folds scans ordered newest first into per-part summaries. When key
// is set, ScannedCount counts distinct key values instead of scans.
func SummarizeScans(scans []entity.PartScan, key func(entity.PartScan) string) []entity.PartScanSummary {
	index := make(map[string]int)
	seenPallet := make(map[string]map[string]bool)
	seenKey := make(map[string]map[string]bool)
	out := make([]entity.PartScanSummary, 0)

	for _, s := range scans {
		i, ok := index[s.PartID]
		if !ok {
			i = len(out)
			index[s.PartID] = i
			out = append(out, entity.PartScanSummary{PartID: s.PartID, LastScanDate: s.ScanDate, Pallets: []string{}})
			seenPallet[s.PartID] = make(map[string]bool)
			seenKey[s.PartID] = make(map[string]bool)
		}
		sum := &out[i]
		if s.ScanDate.After(sum.LastScanDate) {
			sum.LastScanDate = s.ScanDate
		}
		if !seenPallet[s.PartID][s.PalletName] {
			seenPallet[s.PartID][s.PalletName] = true
			sum.Pallets = append(sum.Pallets, s.PalletName)
		}
		if key == nil {
			sum.ScannedCount++
			continue
		}
		if k := key(s); k != "" && !seenKey[s.PartID][k] {
			seenKey[s.PartID][k] = true
			sum.ScannedCount++
		}
	}
	return out
}

func (r *statsRepository) DashboardStats(ctx context.Context) (*entity.DashboardStats, error) {
	var st entity.DashboardStats
	err := r.db.sql.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT job_number),
		       COUNT(DISTINCT part_id),
		       COUNT(*),
		       COALESCE((SELECT job_number FROM scanned_tags ORDER BY scan_date DESC, id DESC LIMIT 1), ''),
		       (SELECT COUNT(*) FROM pallets)
		FROM scanned_tags`).Scan(&st.TotalJobs, &st.TotalUniqueParts, &st.TotalScannedItems, &st.LatestJob, &st.TotalPallets)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to compute dashboard stats", errors.Join(common.ErrDatabase, err))
	}
	return &st, nil
}
