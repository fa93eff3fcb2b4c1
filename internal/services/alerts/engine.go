// Package alerts evaluates anomaly rules over the day's labor events and
// manages the resulting alert records
package alerts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/notify"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/gorm"
)

// Alert types produced by the rule engine
const (
	TypeLowYield       = "BAJO_RENDIMIENTO"
	TypeWeighingFailed = "FALLO_PESAJE"
	TypeHarvestDelay   = "RETRASO_COSECHA"
)

const (
	DefaultInterval            = 5 * time.Minute
	DefaultLowYieldThresholdKg = 50.0
)

// Config controls the engine
type Config struct {
	Interval            time.Duration
	LowYieldThresholdKg float64
	Location            *time.Location
}

// Day is the evaluation window, expressed in UTC
type Day struct {
	Start time.Time
	End   time.Time
}

// Finding is a rule that crossed its threshold
type Finding struct {
	Type     string
	Severity string
	Template string
}

// Rule checks one condition. A nil Finding means nothing to report
type Rule struct {
	Type  string
	Check func(ctx context.Context, day Day) (*Finding, error)
}

// Report summarizes one evaluation run
type Report struct {
	Created    []models.Alert    `json:"creadas"`
	Suppressed []string          `json:"suprimidas"`
	Failed     map[string]string `json:"errores,omitempty"`
}

// Engine periodically evaluates the alert rules. Runs are serialized, which
// keeps the per-day duplicate check race free
type Engine struct {
	db        *gorm.DB
	pub       notify.Publisher
	describer Describer
	cfg       Config
	rules     []Rule
	now       func() time.Time

	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

func NewEngine(db *gorm.DB, pub notify.Publisher, describer Describer, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.LowYieldThresholdKg <= 0 {
		cfg.LowYieldThresholdKg = DefaultLowYieldThresholdKg
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if pub == nil {
		pub = notify.Discard{}
	}
	if describer == nil {
		describer = TemplateDescriber{}
	}
	e := &Engine{
		db:        db,
		pub:       pub,
		describer: describer,
		cfg:       cfg,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	e.rules = []Rule{
		{Type: TypeLowYield, Check: e.checkLowYield},
		{Type: TypeWeighingFailed, Check: e.checkWeighingFailures},
		{Type: TypeHarvestDelay, Check: e.checkHarvestDelay},
	}
	return e
}

// WithClock replaces the time source. Used by tests
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Start begins the background evaluation loop
func (e *Engine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(e.done)
		log.Info().Dur("interval", e.cfg.Interval).Msg("alert engine started")

		ticker := time.NewTicker(e.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Interval)
				if _, err := e.RunOnce(ctx); err != nil {
					log.Error().Err(err).Msg("alert engine run failed")
				}
				cancel()
			case <-e.stop:
				log.Info().Msg("alert engine stopped")
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight run to finish
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stop)
		if e.started.Load() {
			<-e.done
		}
	})
}

// RunOnce evaluates every rule for the current day. A failing rule is
// recorded in the report and does not prevent the others from running
func (e *Engine) RunOnce(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start, end := utils.DayBounds(e.now(), e.cfg.Location)
	day := Day{Start: start, End: end}
	report := Report{Created: []models.Alert{}, Suppressed: []string{}}

	for _, rule := range e.rules {
		alert, suppressed, err := e.evaluate(ctx, rule, day)
		switch {
		case err != nil:
			log.Error().Err(err).Str("rule", rule.Type).Msg("alert rule failed")
			if report.Failed == nil {
				report.Failed = map[string]string{}
			}
			report.Failed[rule.Type] = err.Error()
		case suppressed:
			report.Suppressed = append(report.Suppressed, rule.Type)
		case alert != nil:
			report.Created = append(report.Created, *alert)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Engine) evaluate(ctx context.Context, rule Rule, day Day) (alert *models.Alert, suppressed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %s panicked: %v", rule.Type, r)
		}
	}()

	finding, err := rule.Check(ctx, day)
	if err != nil || finding == nil {
		return nil, false, err
	}

	var open int64
	err = e.db.WithContext(ctx).Model(&models.Alert{}).
		Where("tipo_alerta = ? AND resuelta = ? AND fecha_creacion >= ? AND fecha_creacion < ?",
			finding.Type, false, day.Start, day.End).
		Count(&open).Error
	if err != nil {
		return nil, false, fmt.Errorf("check open %s alerts: %w", finding.Type, err)
	}
	if open > 0 {
		log.Debug().Str("rule", finding.Type).Msg("alert already open today, suppressed")
		return nil, true, nil
	}

	alert = &models.Alert{
		Type:        finding.Type,
		Severity:    finding.Severity,
		Description: e.describe(ctx, *finding),
		CreatedAt:   e.now().UTC(),
	}
	if err := e.db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, false, fmt.Errorf("create %s alert: %w", finding.Type, err)
	}

	log.Warn().Str("rule", alert.Type).Str("severity", alert.Severity).Uint("id_alerta", alert.ID).Msg("alert created")
	e.pub.Publish(notify.AlertCreated, alert)
	return alert, false, nil
}

// describe enriches the template text; any failure falls back to it
func (e *Engine) describe(ctx context.Context, f Finding) string {
	text, err := e.describer.Describe(ctx, f)
	if err != nil {
		log.Warn().Err(err).Str("rule", f.Type).Msg("alert description enrichment failed, using template")
		return f.Template
	}
	if strings.TrimSpace(text) == "" {
		return f.Template
	}
	return text
}

func (e *Engine) checkLowYield(ctx context.Context, day Day) (*Finding, error) {
	var row struct {
		Events int64
		AvgKg  float64
	}
	err := e.db.WithContext(ctx).Model(&models.LaborEvent{}).
		Select("COUNT(*) AS events, COALESCE(AVG(COALESCE(peso_kg, 0)), 0) AS avg_kg").
		Where("fecha_labor >= ? AND fecha_labor < ?", day.Start, day.End).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("average weight: %w", err)
	}
	if row.Events == 0 || row.AvgKg >= e.cfg.LowYieldThresholdKg {
		return nil, nil
	}
	return &Finding{
		Type:     TypeLowYield,
		Severity: models.SeverityMedium,
		Template: fmt.Sprintf("Rendimiento promedio de %.2f kg por labor hoy, por debajo del umbral de %.2f kg (%d labores).",
			row.AvgKg, e.cfg.LowYieldThresholdKg, row.Events),
	}, nil
}

func (e *Engine) checkWeighingFailures(ctx context.Context, day Day) (*Finding, error) {
	var n int64
	err := e.db.WithContext(ctx).Model(&models.LaborEvent{}).
		Where("fecha_labor >= ? AND fecha_labor < ?", day.Start, day.End).
		Where("peso_kg IS NULL OR peso_kg = 0").
		Count(&n).Error
	if err != nil {
		return nil, fmt.Errorf("count weighing failures: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return &Finding{
		Type:     TypeWeighingFailed,
		Severity: models.SeverityHigh,
		Template: fmt.Sprintf("%d labores registradas hoy sin peso o con peso 0 kg. Verifique las básculas.", n),
	}, nil
}

func (e *Engine) checkHarvestDelay(ctx context.Context, day Day) (*Finding, error) {
	var n int64
	err := e.db.WithContext(ctx).Model(&models.LaborEvent{}).
		Where("fecha_programada < ? AND completada = ?", day.Start, false).
		Count(&n).Error
	if err != nil {
		return nil, fmt.Errorf("count delayed harvests: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return &Finding{
		Type:     TypeHarvestDelay,
		Severity: models.SeverityMedium,
		Template: fmt.Sprintf("%d labores programadas para días anteriores siguen sin completarse.", n),
	}, nil
}
