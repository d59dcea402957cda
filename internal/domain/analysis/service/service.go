// Package service orchestrates the analysis pipeline:
// read -> validate -> coerce -> {aggregate, ML}.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/sales-insights/internal/domain/ingest/reader"
	"github.com/FACorreiaa/sales-insights/internal/domain/insights"
	"github.com/FACorreiaa/sales-insights/internal/domain/ml"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/schema"
	"github.com/FACorreiaa/sales-insights/pkg/apperr"
	"github.com/FACorreiaa/sales-insights/pkg/observability"
	"github.com/FACorreiaa/sales-insights/pkg/sample"
)

// Origin tells where the analyzed rows came from.
type Origin string

const (
	OriginUpload Origin = "upload"
	OriginSample Origin = "sample"
)

// correlationTop is how many coefficient pairs the dashboard lists.
const correlationTop = 10

// Input identifies the file to analyze and the reader hints.
type Input struct {
	// Data is the raw upload. When empty, Path is read from disk.
	Data []byte
	Path string
	// FileName routes Data by extension, like a path would.
	FileName   string
	Delimiter  rune
	Sheet      string
	SheetIndex int
	// FallbackToSample analyzes the bundled sample when the file cannot be read.
	FallbackToSample bool
}

func (in Input) readerOptions() reader.Options {
	return reader.Options{
		Delimiter:  in.Delimiter,
		Sheet:      in.Sheet,
		SheetIndex: in.SheetIndex,
		FileName:   in.FileName,
	}
}

// Loaded is a validated, coerced dataset ready for analysis.
type Loaded struct {
	Dataset *dataset.Dataset
	Origin  Origin
}

// Dashboard is everything the overview screen shows.
type Dashboard struct {
	Origin      Origin                       `json:"origin"`
	Rows        int                          `json:"rows"`
	Metrics     insights.Summary             `json:"metrics"`
	Series      insights.MonthlySeries       `json:"series"`
	Categories  []insights.CategoryAggregate `json:"categories"`
	Describe    []insights.ColumnStats       `json:"describe"`
	Correlation insights.CorrelationMatrix   `json:"correlation"`
	Outliers    []insights.OutlierStats      `json:"outliers"`
}

// PCAOutput wraps a PCA result with the data origin.
type PCAOutput struct {
	Origin Origin `json:"origin"`
	*ml.PCAResult
}

// KMeansOutput wraps a clustering result with its silhouette score.
type KMeansOutput struct {
	Origin     Origin  `json:"origin"`
	Silhouette float64 `json:"silhouette"`
	*ml.ClusterResult
}

// SchemaError is a validation failure carrying "did you mean" hints.
// It unwraps to the underlying *apperr.Error.
type SchemaError struct {
	Cause       error
	Suggestions map[string][]string
}

func (e *SchemaError) Error() string { return e.Cause.Error() }
func (e *SchemaError) Unwrap() error { return e.Cause }

// Analyzer is implemented by AnalysisService and its cache decorator.
type Analyzer interface {
	Load(ctx context.Context, in Input) (*Loaded, error)
	Dashboard(ctx context.Context, in Input) (*Dashboard, error)
	PCA(ctx context.Context, in Input, cols []string, components int) (*PCAOutput, error)
	KMeans(ctx context.Context, in Input, cols []string, k int) (*KMeansOutput, error)
}

var _ Analyzer = (*AnalysisService)(nil)

// AnalysisService runs the pipeline without caching.
type AnalysisService struct {
	reader     *reader.Reader
	metrics    *observability.Metrics
	logger     *slog.Logger
	sampleRows int
	sampleSeed int64
}

// NewAnalysisService creates a new analysis service. Reader attempts are
// counted on metrics.
func NewAnalysisService(metrics *observability.Metrics, logger *slog.Logger) *AnalysisService {
	s := &AnalysisService{
		metrics:    metrics,
		logger:     logger,
		sampleRows: 240,
		sampleSeed: sample.DefaultSeed,
	}
	s.reader = reader.New(logger).WithObserver(metrics.ObserveIngest)
	return s
}

// WithSample sets the size and seed of the fallback sample.
func (s *AnalysisService) WithSample(rows int, seed int64) *AnalysisService {
	s.sampleRows = rows
	s.sampleSeed = seed
	return s
}

// Sample builds the bundled synthetic dataset with numeric columns typed.
func (s *AnalysisService) Sample() (*dataset.Dataset, error) {
	rows := sample.NewGenerator(s.sampleSeed).Rows(s.sampleRows)

	n := len(rows)
	mes, cat := make([]string, n), make([]string, n)
	qty, price, revenue := make([]float64, n), make([]float64, n), make([]float64, n)
	unitCost, cost, profit := make([]float64, n), make([]float64, n), make([]float64, n)
	isv, net := make([]float64, n), make([]float64, n)
	for i, r := range rows {
		mes[i], cat[i] = r.Mes, r.Categoria
		qty[i], price[i], revenue[i] = float64(r.CantidadVendida), r.PrecioUnitario, r.IngresoTotal
		unitCost[i], cost[i], profit[i] = r.CostoUnitario, r.CostoTotal, r.UtilidadBruta
		isv[i], net[i] = r.ISV, r.IngresoNeto
	}

	ds, err := dataset.New(
		dataset.StringColumn(schema.ColMes, mes...),
		dataset.StringColumn(schema.ColCategoria, cat...),
		dataset.FloatColumn(schema.ColCantidadVendida, qty...),
		dataset.FloatColumn(schema.ColPrecioUnitario, price...),
		dataset.FloatColumn(schema.ColIngresoTotal, revenue...),
		dataset.FloatColumn(schema.ColCostoUnitario, unitCost...),
		dataset.FloatColumn(schema.ColCostoTotal, cost...),
		dataset.FloatColumn(schema.ColUtilidadBruta, profit...),
		dataset.FloatColumn(schema.ColISV, isv...),
		dataset.FloatColumn(schema.ColIngresoNeto, net...),
	)
	if err != nil {
		return nil, fmt.Errorf("build sample dataset: %w", err)
	}
	return ds, nil
}

// Load reads, validates and coerces the input.
func (s *AnalysisService) Load(ctx context.Context, in Input) (*Loaded, error) {
	origin := OriginUpload

	var ds *dataset.Dataset
	err := s.stage(ctx, "read", func(context.Context) error {
		var err error
		ds, err = s.read(in)
		return err
	})
	if err != nil {
		if !in.FallbackToSample || !apperr.IsKind(err, apperr.KindFileIO) {
			return nil, err
		}
		s.logger.Warn("input unreadable, analyzing bundled sample",
			slog.String("file", in.FileName),
			slog.Any("error", err),
		)
		if ds, err = s.Sample(); err != nil {
			return nil, err
		}
		origin = OriginSample
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = s.stage(ctx, "validate", func(context.Context) error {
		if err := schema.Validate(ds); err != nil {
			return &SchemaError{Cause: err, Suggestions: schema.Suggestions(ds)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(ctx, "coerce", func(context.Context) error {
		ds = dataset.Coerce(ds, schema.NumericVariables())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dataset loaded",
		slog.String("origin", string(origin)),
		slog.Int("rows", ds.Len()),
		slog.Int("columns", len(ds.Columns())),
	)
	return &Loaded{Dataset: ds, Origin: origin}, nil
}

func (s *AnalysisService) read(in Input) (*dataset.Dataset, error) {
	if len(in.Data) == 0 && in.Path != "" {
		return s.reader.Read(in.Path, in.readerOptions())
	}
	return s.reader.ReadBytes(in.Data, in.readerOptions())
}

// Dashboard computes metrics, series, categories, describe, correlation and
// outliers concurrently. The first failure cancels the rest.
func (s *AnalysisService) Dashboard(ctx context.Context, in Input) (*Dashboard, error) {
	loaded, err := s.Load(ctx, in)
	if err != nil {
		return nil, err
	}
	ds := loaded.Dataset
	numeric := presentColumns(ds, schema.NumericVariables())

	out := &Dashboard{Origin: loaded.Origin, Rows: ds.Len()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.stage(gctx, "summary", func(context.Context) (err error) {
			out.Metrics, err = insights.Summarize(ds)
			return err
		})
	})
	g.Go(func() error {
		return s.stage(gctx, "monthly", func(context.Context) (err error) {
			out.Series, err = insights.Monthly(ds)
			return err
		})
	})
	g.Go(func() error {
		return s.stage(gctx, "categories", func(context.Context) (err error) {
			out.Categories, err = insights.Categories(ds)
			return err
		})
	})
	g.Go(func() error {
		return s.stage(gctx, "describe", func(context.Context) (err error) {
			out.Describe, err = insights.Describe(ds, numeric)
			return err
		})
	})
	g.Go(func() error {
		return s.stage(gctx, "correlation", func(context.Context) (err error) {
			out.Correlation, err = insights.Correlation(ds, numeric, correlationTop)
			return err
		})
	})
	g.Go(func() error {
		return s.stage(gctx, "outliers", func(context.Context) (err error) {
			out.Outliers, err = insights.Outliers(ds, numeric)
			return err
		})
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PCA projects the selected columns, or every present numeric column when
// cols is empty, onto the top components.
func (s *AnalysisService) PCA(ctx context.Context, in Input, cols []string, components int) (*PCAOutput, error) {
	loaded, err := s.Load(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		cols = presentColumns(loaded.Dataset, schema.NumericVariables())
	}

	var res *ml.PCAResult
	err = s.stage(ctx, "pca", func(context.Context) (err error) {
		res, err = ml.RunPCA(loaded.Dataset, cols, components)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &PCAOutput{Origin: loaded.Origin, PCAResult: res}, nil
}

// KMeans clusters the selected columns, or every present numeric column when
// cols is empty, and scores the partition.
func (s *AnalysisService) KMeans(ctx context.Context, in Input, cols []string, k int) (*KMeansOutput, error) {
	loaded, err := s.Load(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		cols = presentColumns(loaded.Dataset, schema.NumericVariables())
	}

	var res *ml.ClusterResult
	err = s.stage(ctx, "kmeans", func(context.Context) (err error) {
		res, err = ml.RunKMeans(loaded.Dataset, cols, k)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := &KMeansOutput{Origin: loaded.Origin, ClusterResult: res}
	err = s.stage(ctx, "silhouette", func(context.Context) error {
		out.Silhouette = ml.Silhouette(res.Standardized(), res.Labels)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// stage runs fn inside a span, records its duration and logs the outcome.
func (s *AnalysisService) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := observability.StartSpan(ctx, "analysis."+name)
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	s.metrics.ObserveStage(name, elapsed)
	observability.EndSpan(span, err)

	if err != nil {
		s.logger.Debug("stage failed",
			slog.String("stage", name),
			slog.Duration("duration", elapsed),
			slog.Any("error", err),
		)
		return err
	}
	s.logger.Debug("stage completed",
		slog.String("stage", name),
		slog.Duration("duration", elapsed),
	)
	return nil
}

// presentColumns keeps the cols stored as numbers in ds.
func presentColumns(ds *dataset.Dataset, cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if ds.IsNumeric(c) {
			out = append(out, c)
		}
	}
	return out
}

// SuggestionsOf returns the column hints carried by a validation error.
func SuggestionsOf(err error) map[string][]string {
	var se *SchemaError
	if errors.As(err, &se) {
		return se.Suggestions
	}
	return nil
}
