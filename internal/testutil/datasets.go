package testutil

// Dataset is a small labelled pool for strategy tests.
type Dataset struct {
	X          [][]float64
	Y          []int
	Candidates [][]float64
	NClasses   int
}

// TwoClusters is a one-dimensional two-class pool: class 0 around 0.1,
// class 1 around 3.1, and three candidates.  Candidate 1 sits half
// way between the clusters, so with an RBF kernel of gamma 1 it is the only
// candidate whose label can change a prediction.
func TwoClusters() Dataset {
	return Dataset{
		X:          [][]float64{{0}, {0.2}, {3}, {3.2}},
		Y:          []int{0, 0, 1, 1},
		Candidates: [][]float64{{0.1}, {1.6}, {3.1}},
		NClasses:   2,
	}
}

// TwoClustersWithUnlabeled is TwoClusters with the candidates appended to X
// as unlabeled instances (label -1).
func TwoClustersWithUnlabeled() Dataset {
	d := TwoClusters()
	for _, c := range d.Candidates {
		d.X = append(d.X, c)
		d.Y = append(d.Y, -1)
	}
	return d
}

// ThreeClasses is a one-dimensional three-class pool with one labelled
// instance per class and four candidates.
func ThreeClasses() Dataset {
	return Dataset{
		X:          [][]float64{{0}, {2}, {4}},
		Y:          []int{0, 1, 2},
		Candidates: [][]float64{{0.1}, {1}, {3}, {3.9}},
		NClasses:   3,
	}
}
