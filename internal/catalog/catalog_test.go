package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		slots     []int
		id        string
		wantID    string
		wantPrice int64
		wantUnits int
		wantErr   error
	}{
		{name: "single", slots: []int{7}, id: Single, wantID: Single, wantPrice: 600, wantUnits: 3},
		{name: "half yearly", slots: []int{12}, id: HalfYearly, wantID: HalfYearly, wantPrice: 900, wantUnits: 6},
		{name: "annual", slots: []int{1, 2}, id: Annual, wantID: Annual, wantPrice: 1188, wantUnits: 12},
		{name: "legacy alias", slots: []int{3}, id: "regular", wantID: Single, wantPrice: 600, wantUnits: 3},
		{name: "alias is case insensitive", slots: []int{3, 4}, id: "Annual", wantID: Annual, wantPrice: 1188, wantUnits: 12},
		{name: "unknown package", slots: []int{1}, id: "LIFETIME", wantErr: ErrInvalidPackage},
		{name: "empty package", slots: []int{1}, id: "", wantErr: ErrInvalidPackage},
		{name: "too many slots", slots: []int{1, 2}, id: Single, wantErr: ErrSlotCountMismatch},
		{name: "too few slots", slots: []int{1}, id: Annual, wantErr: ErrSlotCountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Resolve(tt.slots, tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID)
			assert.Equal(t, tt.wantPrice, p.Price)
			assert.Equal(t, tt.wantUnits, p.UnitsGranted)
			assert.Equal(t, tt.wantPrice*100, p.PriceMinor())
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := Resolve([]int{5}, Single)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Resolve([]int{i + 1}, Single)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAll(t *testing.T) {
	t.Parallel()

	all := All()
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Price, all[i].Price)
	}
}
