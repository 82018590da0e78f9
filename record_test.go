package arrayio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordStride(t *testing.T) {
	tests := []struct {
		name    string
		vars    []RecordVar
		want    int64
		wantErr bool
	}{
		{
			name: "sum of vsizes",
			vars: []RecordVar{
				{ElemSize: 4, InnerShape: []int{10}, VSize: 40},
				{ElemSize: 8, InnerShape: []int{3}, VSize: 24},
				{ElemSize: 1, InnerShape: []int{5}, VSize: 8},
			},
			want: 72,
		},
		{
			name: "single short variable is not padded",
			vars: []RecordVar{{ElemSize: 2, InnerShape: []int{3}, VSize: 8}},
			want: 6,
		},
		{
			name: "single byte scalar per record",
			vars: []RecordVar{{ElemSize: 1, VSize: 4}},
			want: 1,
		},
		{
			name: "single int variable uses vsize",
			vars: []RecordVar{{ElemSize: 4, InnerShape: []int{3}, VSize: 12}},
			want: 12,
		},
		{name: "no variables", wantErr: true},
		{
			name:    "negative vsize",
			vars:    []RecordVar{{ElemSize: 4, VSize: 4}, {ElemSize: 4, VSize: -4}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RecordStride(tt.vars)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRecordStride_DrivesSegmentedLayout(t *testing.T) {
	stride, err := RecordStride([]RecordVar{
		{ElemSize: 4, InnerShape: []int{2}, VSize: 8},
		{ElemSize: 8, InnerShape: nil, VSize: 8},
	})
	require.NoError(t, err)

	l, err := NewLayoutRegularSegmented(0, 4, stride, []int{3, 2}, mustSpace(t, []int{0, 0}, []int{3, 2}))
	require.NoError(t, err)
	require.Equal(t, []Chunk{
		{SrcPos: 0, Nelems: 2, DestElem: 0},
		{SrcPos: 16, Nelems: 2, DestElem: 2},
		{SrcPos: 32, Nelems: 2, DestElem: 4},
	}, collectChunks(t, l))
}
