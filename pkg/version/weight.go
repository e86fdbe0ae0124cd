package version

// Weight ranks candidate states during optimization. Finite weights order
// like the Numbers they wrap; MinWeight sorts below and MaxWeight above all
// of them.
type Weight struct {
	rank int8 // -1 for MinWeight, +1 for MaxWeight, 0 for finite weights
	num  Number
}

var (
	// MinWeight sorts below every finite weight.
	MinWeight = Weight{rank: -1}
	// MaxWeight sorts above every finite weight.
	MaxWeight = Weight{rank: 1}
)

// WeightOf returns the finite weight of v.
func WeightOf(v Number) Weight {
	return Weight{num: v}
}

// Number returns the wrapped version and true for finite weights.
func (w Weight) Number() (Number, bool) {
	return w.num, w.rank == 0
}

// Compare returns -1, 0 or +1 following version order for finite weights.
func (w Weight) Compare(o Weight) int {
	if w.rank != o.rank {
		if w.rank < o.rank {
			return -1
		}
		return 1
	}
	if w.rank != 0 {
		return 0
	}
	return w.num.Compare(o.num)
}

// Less reports whether w sorts before o.
func (w Weight) Less(o Weight) bool {
	return w.Compare(o) < 0
}

func (w Weight) String() string {
	switch w.rank {
	case -1:
		return "-inf"
	case 1:
		return "+inf"
	}
	return w.num.String()
}
