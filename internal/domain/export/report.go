package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/sales-insights/internal/domain/insights"
	"github.com/FACorreiaa/sales-insights/pkg/money"
)

// Report formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// MissingValue is printed for metrics that could not be computed.
const MissingValue = "n/d"

// ReportEntry is one line of a report.
type ReportEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Report is a key-value document summarizing an analysis.
type Report struct {
	Title       string        `json:"title" yaml:"title"`
	GeneratedAt time.Time     `json:"generated_at" yaml:"generated_at"`
	Metrics     []ReportEntry `json:"metrics" yaml:"metrics"`
	Categories  []ReportEntry `json:"categories,omitempty" yaml:"categories,omitempty"`
	Notes       []string      `json:"notes,omitempty" yaml:"notes,omitempty"`

	// CategoriesTotal is the exact sum of the category lines.
	CategoriesTotal string `json:"categories_total,omitempty" yaml:"categories_total,omitempty"`
}

// monetary lists the metrics shown as currency.
var monetary = map[string]bool{
	insights.MetricTotalIngresos:    true,
	insights.MetricTotalISV:         true,
	insights.MetricUtilidadPromedio: true,
}

// NewReport builds a report from the summary metrics. Amounts are shown in
// currency, counts as integers and missing values as n/d.
func NewReport(title string, summary insights.Summary, currency string, now time.Time) *Report {
	r := &Report{Title: title, GeneratedAt: now.UTC()}
	for _, m := range summary.Metrics() {
		r.Metrics = append(r.Metrics, ReportEntry{Key: m.Name, Value: formatMetric(m, currency)})
	}

	if ingresos, isv := float64(summary.TotalIngresos), float64(summary.TotalISV); !math.IsNaN(ingresos) && !math.IsNaN(isv) {
		rate := money.NewFromFloat(ingresos, currency).EffectiveRate(money.NewFromFloat(isv, currency))
		r.Metrics = append(r.Metrics, ReportEntry{Key: "tasa_isv_efectiva", Value: rate.StringFixed(2) + "%"})
	}
	return r
}

// WithCategories adds one line per category with its gross profit total, and
// the sum of those lines in minor units.
func (r *Report) WithCategories(rows []insights.CategoryAggregate, currency string) *Report {
	var total *money.Money
	for _, c := range rows {
		v := MissingValue
		if !c.UtilidadTotal.IsNaN() {
			amount := money.NewFromFloat(float64(c.UtilidadTotal), currency)
			v = amount.Display()
			if sum, err := total.Add(amount); err == nil {
				total = sum
			}
		}
		r.Categories = append(r.Categories, ReportEntry{Key: c.Categoria, Value: v})
	}
	if len(rows) > 0 {
		r.CategoriesTotal = total.Display()
	}
	return r
}

// WithNote appends a free-text note.
func (r *Report) WithNote(note string) *Report {
	r.Notes = append(r.Notes, note)
	return r
}

// Write serializes the report in the given format.
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func formatMetric(m insights.Metric, currency string) string {
	switch {
	case math.IsNaN(m.Value):
		return MissingValue
	case m.Count:
		return strconv.FormatInt(int64(m.Value), 10)
	case monetary[m.Name]:
		return money.NewFromFloat(m.Value, currency).Display()
	default:
		return strconv.FormatFloat(m.Value, 'f', -1, 64)
	}
}
