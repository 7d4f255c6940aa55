package storage

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"main/internal/model"
)

// Repository is the durable history consumed by the strategy, risk and
// execution components.
type Repository interface {
	SaveOrder(ctx context.Context, order model.Order) error
	SaveTrade(ctx context.Context, trade model.Trade) error
	DailyRealizedPnL(ctx context.Context, day time.Time) (float64, error)
	SaveRiskMetric(ctx context.Context, state model.RiskState) error
	SaveRiskLimits(ctx context.Context, limits model.RiskLimits) error
	ListSourceConfigs(ctx context.Context) ([]model.SourceConfig, error)
	SaveSourceConfig(ctx context.Context, cfg model.SourceConfig) error
}

// Gorm is the relational implementation of Repository.
type Gorm struct {
	db *gorm.DB
}

// NewGorm migrates the schema and returns the repository.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if err := db.AutoMigrate(
		&OrderRecord{},
		&TradeRecord{},
		&RiskMetricRecord{},
		&RiskLimitsRecord{},
		&SourceConfigRecord{},
	); err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}
	return &Gorm{db: db}, nil
}

// SaveOrder upserts the order row; status changes rewrite it in place.
func (g *Gorm) SaveOrder(ctx context.Context, order model.Order) error {
	record := toOrderRecord(order)
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&record).Error
	return errors.Wrap(err, "save order")
}

// SaveTrade appends one fill.
func (g *Gorm) SaveTrade(ctx context.Context, trade model.Trade) error {
	record := toTradeRecord(trade)
	return errors.Wrap(g.db.WithContext(ctx).Create(&record).Error, "save trade")
}

// DailyRealizedPnL sums realized PnL over the UTC day containing the
// given instant.
func (g *Gorm) DailyRealizedPnL(ctx context.Context, day time.Time) (float64, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	var total float64
	err := g.db.WithContext(ctx).
		Model(&TradeRecord{}).
		Select("COALESCE(SUM(realized_pnl), 0)").
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "daily realized pnl")
	}
	return total, nil
}

// SaveRiskMetric appends one snapshot row.
func (g *Gorm) SaveRiskMetric(ctx context.Context, state model.RiskState) error {
	record := toRiskMetricRecord(state)
	return errors.Wrap(g.db.WithContext(ctx).Create(&record).Error, "save risk metric")
}

// SaveRiskLimits rewrites the single active limits row.
func (g *Gorm) SaveRiskLimits(ctx context.Context, limits model.RiskLimits) error {
	record := RiskLimitsRecord{
		ID:                    1,
		MaxDailyLossPct:       limits.MaxDailyLossPct,
		MaxLeverage:           limits.MaxLeverage,
		MaxPositionSizePct:    limits.MaxPositionSizePct,
		MaxDrawdownPct:        limits.MaxDrawdownPct,
		MaxOpenPositions:      limits.MaxOpenPositions,
		ConcentrationLimitPct: limits.ConcentrationLimitPct,
		LiquidationBufferPct:  limits.LiquidationBufferPct,
		UpdatedAt:             time.Now().UTC(),
	}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&record).Error
	return errors.Wrap(err, "save risk limits")
}

// ListSourceConfigs returns every persisted source config.
func (g *Gorm) ListSourceConfigs(ctx context.Context) ([]model.SourceConfig, error) {
	var records []SourceConfigRecord
	if err := g.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "list source configs")
	}

	out := make([]model.SourceConfig, 0, len(records))
	for _, record := range records {
		cfg, err := record.toModel()
		if err != nil {
			return nil, errors.Wrap(err, "decode source config "+record.ID)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// SaveSourceConfig upserts one source config.
func (g *Gorm) SaveSourceConfig(ctx context.Context, cfg model.SourceConfig) error {
	record, err := toSourceConfigRecord(cfg)
	if err != nil {
		return errors.Wrap(err, "encode source config")
	}
	err = g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&record).Error
	return errors.Wrap(err, "save source config")
}
