package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Bezalel011/Smartcare/models"
	"github.com/Bezalel011/Smartcare/series"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) DailyValues(ctx context.Context, facilityID string, e series.Entity, r series.DateRange) ([]series.Point, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch e.Kind {
	case series.Visits:
		rows, err = s.pool.Query(ctx, `
			SELECT date, total_visits::float8
			FROM visits_daily
			WHERE facility_id = $1 AND date BETWEEN $2 AND $3
			ORDER BY date
		`, facilityID, r.From, r.To)
	case series.Demand:
		rows, err = s.pool.Query(ctx, `
			SELECT date, units_used::float8
			FROM demand_daily
			WHERE facility_id = $1 AND item_code = $2 AND date BETWEEN $3 AND $4
			ORDER BY date
		`, facilityID, e.ItemCode, r.From, r.To)
	case series.Temperature, series.Rainfall, series.Humidity:
		col := e.Kind.String()
		rows, err = s.pool.Query(ctx, fmt.Sprintf(`
			SELECT COALESCE(w.date, v.date), COALESCE(w.%[1]s, v.%[1]s)
			FROM visits_daily v
			FULL OUTER JOIN weather_overrides w
				ON w.date = v.date AND w.facility_id = v.facility_id
			WHERE COALESCE(w.facility_id, v.facility_id) = $1
				AND COALESCE(w.date, v.date) BETWEEN $2 AND $3
				AND COALESCE(w.%[1]s, v.%[1]s) IS NOT NULL
			ORDER BY 1
		`, col), facilityID, r.From, r.To)
	default:
		return nil, fmt.Errorf("unsupported series kind %s", e.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", e, err)
	}
	defer rows.Close()

	var points []series.Point
	for rows.Next() {
		var p series.Point
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", e, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Postgres) Facilities(ctx context.Context) ([]string, error) {
	return s.column(ctx, `
		SELECT facility_id FROM visits_daily
		UNION
		SELECT facility_id FROM inventory
		ORDER BY 1
	`)
}

// ItemCodes lists every item the facility stocks or has ever used.
func (s *Postgres) ItemCodes(ctx context.Context, facilityID string) ([]string, error) {
	return s.column(ctx, `
		SELECT item_code FROM inventory WHERE facility_id = $1
		UNION
		SELECT item_code FROM demand_daily WHERE facility_id = $1
		ORDER BY 1
	`, facilityID)
}

func (s *Postgres) column(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Postgres) WeatherOverrides(ctx context.Context, facilityID string, r series.DateRange) (map[time.Time]map[series.Kind]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, temperature, rainfall, humidity
		FROM weather_overrides
		WHERE facility_id = $1 AND date BETWEEN $2 AND $3
	`, facilityID, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("query weather overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[time.Time]map[series.Kind]float64)
	for rows.Next() {
		var w models.WeatherOverride
		if err := rows.Scan(&w.Date, &w.Temperature, &w.Rainfall, &w.Humidity); err != nil {
			return nil, err
		}
		addOverride(out, w)
	}
	return out, rows.Err()
}

func addOverride(out map[time.Time]map[series.Kind]float64, w models.WeatherOverride) {
	day := series.Day(w.Date)
	for _, k := range series.Covariates {
		if v := weatherField(k, w.Temperature, w.Rainfall, w.Humidity); v != nil {
			if out[day] == nil {
				out[day] = make(map[series.Kind]float64)
			}
			out[day][k] = *v
		}
	}
}

// UpsertVolumeForecast writes all forecast columns in one statement so a
// reader never sees a half-updated row.
func (s *Postgres) UpsertVolumeForecast(ctx context.Context, f models.VolumeForecast) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pred_volume_daily (date, facility_id, yhat, p10, p90, status_level, model_ver)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date, facility_id) DO UPDATE SET
			yhat = EXCLUDED.yhat,
			p10 = EXCLUDED.p10,
			p90 = EXCLUDED.p90,
			status_level = EXCLUDED.status_level,
			model_ver = EXCLUDED.model_ver
	`, f.Date, f.FacilityID, f.Yhat, f.P10, f.P90, f.StatusLevel, f.ModelVer)
	return err
}

func (s *Postgres) UpsertDemandForecast(ctx context.Context, f models.DemandForecast) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pred_demand_daily (date, facility_id, item_code, yhat, p10, p90, model_ver)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date, facility_id, item_code) DO UPDATE SET
			yhat = EXCLUDED.yhat,
			p10 = EXCLUDED.p10,
			p90 = EXCLUDED.p90,
			model_ver = EXCLUDED.model_ver
	`, f.Date, f.FacilityID, f.ItemCode, f.Yhat, f.P10, f.P90, f.ModelVer)
	return err
}

func (s *Postgres) VolumeForecastOn(ctx context.Context, facilityID string, date time.Time) (*models.VolumeForecast, error) {
	var f models.VolumeForecast
	err := s.pool.QueryRow(ctx, `
		SELECT date, facility_id, yhat, p10, p90, status_level, model_ver
		FROM pred_volume_daily
		WHERE facility_id = $1 AND date = $2
	`, facilityID, series.Day(date)).Scan(&f.Date, &f.FacilityID, &f.Yhat, &f.P10, &f.P90, &f.StatusLevel, &f.ModelVer)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Postgres) DemandForecasts(ctx context.Context, facilityID string, date time.Time) ([]models.DemandForecast, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, facility_id, item_code, yhat, p10, p90, model_ver
		FROM pred_demand_daily
		WHERE facility_id = $1 AND date = $2
		ORDER BY item_code
	`, facilityID, series.Day(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DemandForecast
	for rows.Next() {
		var f models.DemandForecast
		if err := rows.Scan(&f.Date, &f.FacilityID, &f.ItemCode, &f.Yhat, &f.P10, &f.P90, &f.ModelVer); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Postgres) InventorySnapshot(ctx context.Context, facilityID string) ([]models.InventoryItem, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	items, err := queryInventory(ctx, tx, facilityID)
	if err != nil {
		return nil, err
	}
	return items, tx.Commit(ctx)
}

func queryInventory(ctx context.Context, q queryable, facilityID string) ([]models.InventoryItem, error) {
	rows, err := q.Query(ctx, `
		SELECT facility_id, item_code, name, on_hand, reorder_point, updated_at
		FROM inventory
		WHERE facility_id = $1
		ORDER BY item_code
	`, facilityID)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var items []models.InventoryItem
	for rows.Next() {
		var it models.InventoryItem
		if err := rows.Scan(&it.FacilityID, &it.ItemCode, &it.Name, &it.OnHand, &it.ReorderPoint, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Postgres) VisitsOn(ctx context.Context, facilityID string, date time.Time) (*models.VisitDaily, error) {
	var v models.VisitDaily
	err := s.pool.QueryRow(ctx, `
		SELECT date, facility_id, total_visits, male_patients, female_patients, children_under5,
			temperature, rainfall, humidity, created_at
		FROM visits_daily
		WHERE facility_id = $1 AND date = $2
	`, facilityID, series.Day(date)).Scan(&v.Date, &v.FacilityID, &v.TotalVisits, &v.MalePatients,
		&v.FemalePatients, &v.ChildrenUnder5, &v.Temperature, &v.Rainfall, &v.Humidity, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Postgres) DemandOn(ctx context.Context, facilityID string, date time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT item_code, units_used
		FROM demand_daily
		WHERE facility_id = $1 AND date = $2
	`, facilityID, series.Day(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var code string
		var units int
		if err := rows.Scan(&code, &units); err != nil {
			return nil, err
		}
		out[code] = units
	}
	return out, rows.Err()
}

func (s *Postgres) UpsertMetric(ctx context.Context, m models.ModelMetric) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO model_metrics (date, facility_id, task, metric, value, model_ver)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date, facility_id, task, metric) DO UPDATE SET
			value = EXCLUDED.value,
			model_ver = EXCLUDED.model_ver
	`, m.Date, m.FacilityID, m.Task, m.Metric, m.Value, m.ModelVer)
	return err
}

func (s *Postgres) UpsertVisit(ctx context.Context, v models.VisitDaily) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO visits_daily (date, facility_id, total_visits, male_patients, female_patients,
			children_under5, temperature, rainfall, humidity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (date, facility_id) DO UPDATE SET
			total_visits = EXCLUDED.total_visits,
			male_patients = COALESCE(EXCLUDED.male_patients, visits_daily.male_patients),
			female_patients = COALESCE(EXCLUDED.female_patients, visits_daily.female_patients),
			children_under5 = COALESCE(EXCLUDED.children_under5, visits_daily.children_under5),
			temperature = COALESCE(EXCLUDED.temperature, visits_daily.temperature),
			rainfall = COALESCE(EXCLUDED.rainfall, visits_daily.rainfall),
			humidity = COALESCE(EXCLUDED.humidity, visits_daily.humidity)
	`, series.Day(v.Date), v.FacilityID, v.TotalVisits, v.MalePatients, v.FemalePatients,
		v.ChildrenUnder5, v.Temperature, v.Rainfall, v.Humidity)
	return err
}

func (s *Postgres) UpsertDemand(ctx context.Context, d models.DemandDaily) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO demand_daily (date, facility_id, item_code, units_used)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date, facility_id, item_code) DO UPDATE SET
			units_used = EXCLUDED.units_used
	`, series.Day(d.Date), d.FacilityID, d.ItemCode, d.UnitsUsed)
	return err
}

func (s *Postgres) UpsertInventory(ctx context.Context, item models.InventoryItem) error {
	return s.MergeInventory(ctx, fullUpdate(item))
}

// MergeInventory applies a partial write in one statement so concurrent
// writers never restore each other's stale fields.
func (s *Postgres) MergeInventory(ctx context.Context, u InventoryUpdate) error {
	if err := u.validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inventory (facility_id, item_code, name, on_hand, reorder_point, updated_at)
		VALUES ($1, $2, COALESCE(NULLIF($3::text, ''), $2), COALESCE($4::int, 0), COALESCE($5::int, 0), now())
		ON CONFLICT (facility_id, item_code) DO UPDATE SET
			name = COALESCE(NULLIF($3::text, ''), inventory.name),
			on_hand = COALESCE($4::int, inventory.on_hand),
			reorder_point = COALESCE($5::int, inventory.reorder_point),
			updated_at = now()
	`, u.FacilityID, u.ItemCode, u.Name, u.OnHand, u.ReorderPoint)
	return err
}

func (s *Postgres) UpsertWeatherOverride(ctx context.Context, w models.WeatherOverride) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO weather_overrides (date, facility_id, temperature, rainfall, humidity, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (date, facility_id) DO UPDATE SET
			temperature = COALESCE(EXCLUDED.temperature, weather_overrides.temperature),
			rainfall = COALESCE(EXCLUDED.rainfall, weather_overrides.rainfall),
			humidity = COALESCE(EXCLUDED.humidity, weather_overrides.humidity),
			updated_at = now()
	`, series.Day(w.Date), w.FacilityID, w.Temperature, w.Rainfall, w.Humidity)
	return err
}
