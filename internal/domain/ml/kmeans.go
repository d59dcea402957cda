package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/FACorreiaa/sales-insights/internal/domain/insights"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
)

// K-Means defaults.
const (
	DefaultSeed     = 42
	DefaultRestarts = 10
	DefaultMaxIter  = 300
	DefaultTol      = 1e-4
)

var ErrInvalidK = errors.New("k must be at least 1")

// KMeansConfig tunes the clustering run.
type KMeansConfig struct {
	Seed     uint64
	Restarts int
	MaxIter  int
	Tol      float64
}

// DefaultKMeansConfig returns the fixed-seed configuration used by RunKMeans.
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{
		Seed:     DefaultSeed,
		Restarts: DefaultRestarts,
		MaxIter:  DefaultMaxIter,
		Tol:      DefaultTol,
	}
}

// Profile is the per-cluster mean of every selected column in original units.
// An empty cluster has NaN means.
type Profile struct {
	Columns  []string            `json:"columns"`
	Clusters []int               `json:"clusters"`
	Means    [][]insights.Number `json:"means"` // len(Clusters) x len(Columns)
}

// ClusterResult is the outcome of a K-Means run over the complete rows.
type ClusterResult struct {
	Columns  []string    `json:"columns"`
	Labels   []int       `json:"labels"`
	Centers  [][]float64 `json:"centers"` // standardized space
	Profile  Profile     `json:"profile"`
	Sizes    []int       `json:"sizes"`
	Inertia  float64     `json:"inertia"`
	RowIndex []int       `json:"row_index"`

	standardized [][]float64
}

// Standardized returns the scaled points the labels refer to.
func (r *ClusterResult) Standardized() [][]float64 {
	return r.standardized
}

// RunKMeans clusters the selected columns with the default configuration.
func RunKMeans(ds *dataset.Dataset, cols []string, k int) (*ClusterResult, error) {
	return RunKMeansWithConfig(ds, cols, k, DefaultKMeansConfig())
}

// RunKMeansWithConfig standardizes the selected columns, drops rows with
// missing values and runs Lloyd's algorithm from k-means++ seeds. The restart
// with the lowest inertia wins. The same input and config always give the
// same result.
func RunKMeansWithConfig(ds *dataset.Dataset, cols []string, k int, cfg KMeansConfig) (*ClusterResult, error) {
	if k < 1 {
		return nil, processing("No se pudo ejecutar K-Means", ErrInvalidK)
	}
	x, rowIndex, err := complete(ds, cols)
	if err != nil {
		return nil, processing("No se pudo ejecutar K-Means", err)
	}
	if len(x) < k {
		return nil, processing(fmt.Sprintf("No hay suficientes datos (%d) para %d clusters", len(x), k), nil)
	}

	z := FitScaler(x).Transform(x)
	tol := cfg.Tol * meanVariance(z)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))

	restarts := max(cfg.Restarts, 1)
	var (
		bestLabels  []int
		bestCenters [][]float64
		bestInertia = math.Inf(1)
	)
	for r := 0; r < restarts; r++ {
		centers := seedPlusPlus(z, k, rng)
		labels, centers, inertia := lloyd(z, centers, cfg.MaxIter, tol)
		if inertia < bestInertia {
			bestLabels, bestCenters, bestInertia = labels, centers, inertia
		}
	}

	res := &ClusterResult{
		Columns:      append([]string(nil), cols...),
		Labels:       bestLabels,
		Centers:      bestCenters,
		Sizes:        make([]int, k),
		Inertia:      bestInertia,
		RowIndex:     rowIndex,
		standardized: z,
	}
	for _, l := range bestLabels {
		res.Sizes[l]++
	}
	res.Profile = profile(x, bestLabels, k, cols)
	return res, nil
}

// seedPlusPlus picks k initial centers, each next one drawn with probability
// proportional to its squared distance from the nearest center chosen so far.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(x[rng.IntN(len(x))]))

	dist := make([]float64, len(x))
	for i, p := range x {
		dist[i] = sqDist(p, centers[0])
	}

	for len(centers) < k {
		total := floats.Sum(dist)
		next := 0
		if total <= 0 {
			next = rng.IntN(len(x))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range dist {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
				next = i
			}
		}
		c := clone(x[next])
		centers = append(centers, c)
		for i, p := range x {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centers
}

// lloyd alternates assignment and mean updates until the centers move less
// than tol (sum of squared shifts) or maxIter is reached.
func lloyd(x [][]float64, centers [][]float64, maxIter int, tol float64) ([]int, [][]float64, float64) {
	k, d := len(centers), len(x[0])
	labels := make([]int, len(x))

	for iter := 0; iter < maxIter; iter++ {
		assign(x, centers, labels)

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, d)
		}
		for i, p := range x {
			floats.Add(next[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				// an empty cluster takes the point farthest from its center
				far := farthest(x, centers, labels)
				copy(next[c], x[far])
				labels[far] = c
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}

		shift := 0.0
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if shift <= tol {
			break
		}
	}

	inertia := assign(x, centers, labels)
	return labels, centers, inertia
}

// assign labels every point with its nearest center and returns the inertia.
func assign(x [][]float64, centers [][]float64, labels []int) float64 {
	inertia := 0.0
	for i, p := range x {
		best, bestD := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
		inertia += bestD
	}
	return inertia
}

func farthest(x [][]float64, centers [][]float64, labels []int) int {
	idx, dist := 0, -1.0
	for i, p := range x {
		if d := sqDist(p, centers[labels[i]]); d > dist {
			idx, dist = i, d
		}
	}
	return idx
}

func profile(x [][]float64, labels []int, k int, cols []string) Profile {
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, len(cols))
	}
	for i, row := range x {
		floats.Add(sums[labels[i]], row)
		counts[labels[i]]++
	}

	p := Profile{
		Columns:  append([]string(nil), cols...),
		Clusters: make([]int, k),
		Means:    make([][]insights.Number, k),
	}
	for c := 0; c < k; c++ {
		p.Clusters[c] = c
		p.Means[c] = make([]insights.Number, len(cols))
		for j, sum := range sums[c] {
			if counts[c] == 0 {
				p.Means[c][j] = insights.NaN()
				continue
			}
			p.Means[c][j] = insights.Number(roundTo(sum/float64(counts[c]), 4))
		}
	}
	return p
}

// Records renders the profile with one row per cluster.
func (p Profile) Records() [][]string {
	out := [][]string{append([]string{"cluster"}, p.Columns...)}
	for i, c := range p.Clusters {
		row := []string{fmt.Sprint(c)}
		for _, v := range p.Means[i] {
			row = append(row, dataset.FormatFloat(float64(v)))
		}
		out = append(out, row)
	}
	return out
}

func meanVariance(x [][]float64) float64 {
	if len(x) == 0 {
		return 0
	}
	d := len(x[0])
	col := make([]float64, len(x))
	sum := 0.0
	for j := 0; j < d; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		_, v := stat.PopMeanVariance(col, nil)
		sum += v
	}
	return sum / float64(d)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}

func roundTo(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
