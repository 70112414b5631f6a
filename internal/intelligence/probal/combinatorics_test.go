package probal

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

func TestEulerBeta(t *testing.T) {
	t.Parallel()

	got := EulerBeta([][]float64{{1, 1}, {2, 3}, {1, 1, 1}})
	// B(1,1) = 0!·0!/1! = 1, B(2,3) = 1!·2!/4! = 1/12, B(1,1,1) = 1/2!
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, 1.0/12, got[1], 1e-12)
	assert.InDelta(t, 0.5, got[2], 1e-12)
}

func TestLogEulerBeta_LargePseudoCounts(t *testing.T) {
	t.Parallel()

	v := LogEulerBeta([]float64{1000, 1000, 10})
	assert.False(t, math.IsNaN(v))
	assert.False(t, math.IsInf(v, 0))
}

func TestMultinomialCoefficient(t *testing.T) {
	t.Parallel()

	got := MultinomialCoefficient([][]int{{2, 1}, {0, 0}, {1, 1, 1}, {3, 0, 2}})
	assert.Equal(t, []float64{3, 1, 6, 10}, got)
}

func TestEnumerateLabelVectors(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 5} {
		for m := 0; m <= 6; m++ {
			n, m := n, m
			t.Run(fmt.Sprintf("m=%d_n=%d", m, n), func(t *testing.T) {
				vs, err := EnumerateLabelVectors(m, n)
				require.NoError(t, err)
				assert.Len(t, vs, LabelVectorCount(m, n))

				seen := make(map[string]bool, len(vs))
				for _, v := range vs {
					require.Len(t, v, n)
					sum := 0
					for _, x := range v {
						assert.GreaterOrEqual(t, x, 0)
						sum += x
					}
					assert.Equal(t, m, sum)
					key := fmt.Sprint(v)
					assert.False(t, seen[key], "duplicate %v", v)
					seen[key] = true
				}
			})
		}
	}
}

func TestEnumerateLabelVectors_Order(t *testing.T) {
	t.Parallel()

	vs, err := EnumerateLabelVectors(2, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]int{
		{0, 0, 2}, {0, 1, 1}, {0, 2, 0},
		{1, 0, 1}, {1, 1, 0},
		{2, 0, 0},
	}, vs)
}

func TestEnumerateLabelVectors_Invalid(t *testing.T) {
	t.Parallel()

	_, err := EnumerateLabelVectors(-1, 2)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))

	_, err = EnumerateLabelVectors(1, 0)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
}

func TestLabelVectorCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, LabelVectorCount(0, 4))
	assert.Equal(t, 3, LabelVectorCount(2, 2))
	assert.Equal(t, 10, LabelVectorCount(2, 4))
	assert.Equal(t, 0, LabelVectorCount(-1, 2))
}

func TestLabelVectorTable(t *testing.T) {
	t.Parallel()

	table, err := newLabelVectorTable(2, 2)
	require.NoError(t, err)
	// m=0: 1, m=1: 2, m=2: 3
	assert.Len(t, table.vectors, 6)
	assert.Equal(t, []int{0, 1, 1, 2, 2, 2}, table.m)
	assert.InDelta(t, math.Log(2), table.logMult[4], 1e-12) // [1,1]
}
