package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates every table the engine reads or writes. Each statement is
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS visits_daily (
	date            DATE NOT NULL,
	facility_id     TEXT NOT NULL,
	total_visits    INTEGER NOT NULL CHECK (total_visits >= 0),
	male_patients   INTEGER,
	female_patients INTEGER,
	children_under5 INTEGER,
	temperature     DOUBLE PRECISION,
	rainfall        DOUBLE PRECISION,
	humidity        DOUBLE PRECISION,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (date, facility_id)
);
CREATE INDEX IF NOT EXISTS idx_visits_daily_facility_date ON visits_daily (facility_id, date);

CREATE TABLE IF NOT EXISTS demand_daily (
	date        DATE NOT NULL,
	facility_id TEXT NOT NULL,
	item_code   TEXT NOT NULL,
	units_used  INTEGER NOT NULL CHECK (units_used >= 0),
	PRIMARY KEY (date, facility_id, item_code)
);
CREATE INDEX IF NOT EXISTS idx_demand_daily_facility_item ON demand_daily (facility_id, item_code, date);

CREATE TABLE IF NOT EXISTS inventory (
	facility_id   TEXT NOT NULL,
	item_code     TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	on_hand       INTEGER NOT NULL DEFAULT 0 CHECK (on_hand >= 0),
	reorder_point INTEGER NOT NULL DEFAULT 0 CHECK (reorder_point >= 0),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (facility_id, item_code)
);

CREATE TABLE IF NOT EXISTS pred_volume_daily (
	date         DATE NOT NULL,
	facility_id  TEXT NOT NULL,
	yhat         DOUBLE PRECISION NOT NULL,
	p10          DOUBLE PRECISION NOT NULL,
	p90          DOUBLE PRECISION NOT NULL,
	status_level TEXT NOT NULL DEFAULT '',
	model_ver    TEXT NOT NULL,
	PRIMARY KEY (date, facility_id),
	CHECK (p10 <= yhat AND yhat <= p90)
);

CREATE TABLE IF NOT EXISTS pred_demand_daily (
	date        DATE NOT NULL,
	facility_id TEXT NOT NULL,
	item_code   TEXT NOT NULL,
	yhat        DOUBLE PRECISION NOT NULL,
	p10         DOUBLE PRECISION NOT NULL,
	p90         DOUBLE PRECISION NOT NULL,
	model_ver   TEXT NOT NULL,
	PRIMARY KEY (date, facility_id, item_code),
	CHECK (p10 <= yhat AND yhat <= p90)
);

CREATE TABLE IF NOT EXISTS model_metrics (
	date        DATE NOT NULL,
	facility_id TEXT NOT NULL,
	task        TEXT NOT NULL,
	metric      TEXT NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	model_ver   TEXT NOT NULL,
	PRIMARY KEY (date, facility_id, task, metric)
);

CREATE TABLE IF NOT EXISTS nurse_log (
	date        DATE NOT NULL,
	facility_id TEXT NOT NULL,
	counts      JSONB NOT NULL DEFAULT '{}'::jsonb,
	notes       TEXT,
	logged_by   TEXT,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (date, facility_id)
);

CREATE TABLE IF NOT EXISTS weather_overrides (
	date        DATE NOT NULL,
	facility_id TEXT NOT NULL,
	temperature DOUBLE PRECISION,
	rainfall    DOUBLE PRECISION,
	humidity    DOUBLE PRECISION,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (date, facility_id)
);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
