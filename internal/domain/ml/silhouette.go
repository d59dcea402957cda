package ml

import (
	"gonum.org/v1/gonum/floats"
)

// Silhouette returns the mean silhouette coefficient of a labelling. Points in
// singleton clusters score 0. The result is 0 when fewer than two clusters
// have members.
func Silhouette(points [][]float64, labels []int) float64 {
	if len(points) == 0 || len(points) != len(labels) {
		return 0
	}

	members := map[int][]int{}
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	if len(members) < 2 {
		return 0
	}

	total := 0.0
	for i, p := range points {
		own := members[labels[i]]
		if len(own) < 2 {
			continue
		}

		a := 0.0
		for _, j := range own {
			if j != i {
				a += floats.Distance(p, points[j], 2)
			}
		}
		a /= float64(len(own) - 1)

		b := -1.0
		for l, idx := range members {
			if l == labels[i] {
				continue
			}
			mean := 0.0
			for _, j := range idx {
				mean += floats.Distance(p, points[j], 2)
			}
			mean /= float64(len(idx))
			if b < 0 || mean < b {
				b = mean
			}
		}

		if m := max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(len(points))
}
