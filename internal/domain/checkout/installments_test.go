package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallmentFor(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		rate  string
		sum   string
		value string
	}{
		{name: "single", total: "300", n: 1, rate: "0", sum: "300", value: "300"},
		{name: "three is free", total: "300", n: 3, rate: "0", sum: "300", value: "100"},
		{name: "four", total: "100", n: 4, rate: "14.95", sum: "114.95", value: "28.74"},
		{name: "twelve", total: "100", n: 12, rate: "34.87", sum: "134.87", value: "11.24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InstallmentFor(dec(tt.total), tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.n, got.Count)
			assertDec(t, tt.rate, got.SurchargePercent)
			assertDec(t, tt.sum, Round(got.Total))
			assertDec(t, tt.value, Round(got.Value))
			assert.Equal(t, tt.n > 3, got.HasSurcharge())
		})
	}
}

func TestInstallmentFor_OutOfRange(t *testing.T) {
	for _, n := range []int{-1, 0, 13} {
		_, err := InstallmentFor(dec("100"), n)
		require.ErrorIs(t, err, ErrInvalidInstallments, "n=%d", n)
	}
}

func TestPlan(t *testing.T) {
	plan := Plan(dec("100"))
	require.Len(t, plan, MaxInstallments)
	for i, inst := range plan {
		assert.Equal(t, i+1, inst.Count)
		if i > 0 {
			assert.True(t, inst.Total.GreaterThanOrEqual(plan[i-1].Total), "surcharge never decreases")
		}
	}
}
