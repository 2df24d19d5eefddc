package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tokoanjar/pos-api/internal/pricing"
)

// DailySummary aggregates one day of sales.
type DailySummary struct {
	Date         string                   `json:"date"`
	SaleCount    int                      `json:"saleCount"`
	ManualCount  int                      `json:"manualCount"`
	Revenue      pricing.Money            `json:"revenue"`
	Discount     pricing.Money            `json:"discount"`
	Profit       pricing.Money            `json:"profit"`
	CopyRevenue  pricing.Money            `json:"copyRevenue"`
	CopySheets   int                      `json:"copySheets"`
	Payments     map[string]pricing.Money `json:"payments"`
}

// TopProduct is a product ranked by quantity sold over a range.
type TopProduct struct {
	Name    string        `json:"name"`
	Qty     int           `json:"qty"`
	Revenue pricing.Money `json:"revenue"`
}

// Service answers sales questions from the receipt tables. Completed days are
// immutable so their summaries cache well.
type Service struct {
	DB       *pgxpool.Pool
	R        *redis.Client
	TTL      time.Duration
	Location *time.Location
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

// Daily returns the summary for one calendar day.
func (s *Service) Daily(ctx context.Context, date time.Time) (DailySummary, error) {
	day := date.In(s.loc())
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc())
	end := start.AddDate(0, 0, 1)
	dateKey := start.Format("2006-01-02")

	cacheable := end.Before(s.now())
	cacheKey := "report:daily:" + dateKey
	if cacheable && s.R != nil {
		if data, err := s.R.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached DailySummary
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			return DailySummary{}, err
		}
	}

	summary := DailySummary{Date: dateKey}
	err := s.DB.QueryRow(ctx, `
SELECT
  COUNT(*) FILTER (WHERE NOT is_manual),
  COUNT(*) FILTER (WHERE is_manual),
  COALESCE(SUM(total), 0),
  COALESCE(SUM(discount), 0),
  COALESCE(SUM(profit), 0)
FROM receipts
WHERE created_at >= $1 AND created_at < $2`, start, end).
		Scan(&summary.SaleCount, &summary.ManualCount, &summary.Revenue, &summary.Discount, &summary.Profit)
	if err != nil {
		return DailySummary{}, fmt.Errorf("daily summary: %w", err)
	}

	err = s.DB.QueryRow(ctx, `
SELECT COALESCE(SUM(ri.line_total), 0), COALESCE(SUM(ri.qty), 0)
FROM receipt_items ri
JOIN receipts r ON r.id = ri.receipt_id
WHERE ri.is_photocopy AND r.created_at >= $1 AND r.created_at < $2`, start, end).
		Scan(&summary.CopyRevenue, &summary.CopySheets)
	if err != nil {
		return DailySummary{}, fmt.Errorf("copy summary: %w", err)
	}

	summary.Payments = make(map[string]pricing.Money)
	rows, err := s.DB.Query(ctx, `
SELECT payment_method, COALESCE(SUM(total), 0)
FROM receipts
WHERE created_at >= $1 AND created_at < $2
GROUP BY payment_method`, start, end)
	if err != nil {
		return DailySummary{}, fmt.Errorf("payment summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var amount pricing.Money
		if err := rows.Scan(&method, &amount); err != nil {
			return DailySummary{}, fmt.Errorf("payment summary: %w", err)
		}
		summary.Payments[method] = amount
	}
	if err := rows.Err(); err != nil {
		return DailySummary{}, fmt.Errorf("payment summary: %w", err)
	}

	if cacheable && s.R != nil {
		if data, err := json.Marshal(summary); err == nil {
			ttl := s.TTL
			if ttl <= 0 {
				ttl = 10 * time.Minute
			}
			_ = s.R.Set(ctx, cacheKey, data, ttl).Err()
		}
	}
	return summary, nil
}

// Range returns one summary per day over [from, to] inclusive.
func (s *Service) Range(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	if to.Before(from) {
		return nil, errors.New("report: range end before start")
	}
	if to.Sub(from) > 92*24*time.Hour {
		return nil, errors.New("report: range longer than 92 days")
	}
	out := make([]DailySummary, 0)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		summary, err := s.Daily(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// TopProducts ranks products by quantity sold in [from, to).
func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := s.DB.Query(ctx, `
SELECT ri.name, SUM(ri.qty)::int, SUM(ri.line_total)
FROM receipt_items ri
JOIN receipts r ON r.id = ri.receipt_id
WHERE NOT ri.is_photocopy AND r.created_at >= $1 AND r.created_at < $2
GROUP BY ri.name
ORDER BY SUM(ri.qty) DESC
LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TopProduct, 0, limit)
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.Name, &tp.Qty, &tp.Revenue); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}
