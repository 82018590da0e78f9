package arrayio

import (
	"errors"
	"fmt"

	"github.com/scigolib/arrayio/internal/utils"
)

// RecordVar describes one netCDF3 record variable as declared in the file
// header: its element size, its shape without the record dimension, and
// the padded per-record size (vsize) recorded in the header.
type RecordVar struct {
	ElemSize   int
	InnerShape []int
	VSize      int64
}

// unpaddedSize returns the bytes one record of v actually occupies.
func (v RecordVar) unpaddedSize() (int64, error) {
	n, err := utils.ShapeProduct(v.InnerShape)
	if err != nil {
		return 0, err
	}
	return utils.ByteSize(n, v.ElemSize)
}

// RecordStride returns the distance in bytes between consecutive records,
// for use as the record size of NewLayoutRegularSegmented.
//
// The stride is the sum of the header vsizes of all record variables.
// Files with a single record variable of byte, char or short type store
// records without padding to four bytes, even though the header vsize is
// padded; for those the stride is the unpadded per-record size.
func RecordStride(vars []RecordVar) (int64, error) {
	if len(vars) == 0 {
		return 0, errors.New("no record variables")
	}

	if len(vars) == 1 && vars[0].ElemSize < 4 {
		size, err := vars[0].unpaddedSize()
		if err != nil {
			return 0, utils.WrapError("record stride", err)
		}
		return size, nil
	}

	var stride int64
	for i, v := range vars {
		if v.VSize < 0 {
			return 0, utils.WrapError("record stride", fmt.Errorf("variable %d has negative vsize %d", i, v.VSize))
		}
		stride += v.VSize
	}
	return stride, nil
}
