package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObservationKind separates scheduled dashboard ingestion from ad-hoc live
// searches. Both share the append-only observations table.
type ObservationKind string

const (
	KindDashboard ObservationKind = "dashboard"
	KindLive      ObservationKind = "live"
)

// PriceObservation is one scraped price for a commodity from one source at
// one point in time. Observations are append-only: later fetches add new
// rows, history is never rewritten.
type PriceObservation struct {
	ID            int64
	CommodityName string
	ProductName   string
	Source        string
	Category      string
	Unit          string
	Price         decimal.Decimal
	Description   string
	Kind          ObservationKind
	SearchTerm    string
	ObservedAt    time.Time
}

// Alert is a user price target matched against commodity names by
// case-insensitive substring. There is deliberately no foreign key to a
// commodity: product naming varies across sources.
type Alert struct {
	ID          int64
	OwnerRef    string
	ItemPattern string
	TargetPrice decimal.Decimal
	Active      bool
	CreatedAt   time.Time
}

// CategorySummary counts tracked commodities per category.
type CategorySummary struct {
	Name        string
	Commodities int64
}
