package runner

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// NIfTI header sizes used to detect version and byte order. A header whose
// leading int32 is neither value in either byte order is not a NIfTI file.
const (
	nifti1HeaderSize = 348
	nifti2HeaderSize = 540
)

// niftiShape reads the dimension tuple from a NIfTI-1 or NIfTI-2 image,
// transparently decompressing .nii.gz files. Only the header is read; voxel
// data is never loaded.
func niftiShape(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	header := make([]byte, nifti2HeaderSize)
	n, err := io.ReadFull(r, header)
	if err != nil && n < nifti1HeaderSize {
		return nil, fmt.Errorf("reading NIfTI header from %s: %w", path, err)
	}

	sizeLE := binary.LittleEndian.Uint32(header[0:4])
	sizeBE := binary.BigEndian.Uint32(header[0:4])

	var order binary.ByteOrder
	var version int
	switch {
	case sizeLE == nifti1HeaderSize:
		order, version = binary.LittleEndian, 1
	case sizeBE == nifti1HeaderSize:
		order, version = binary.BigEndian, 1
	case sizeLE == nifti2HeaderSize:
		order, version = binary.LittleEndian, 2
	case sizeBE == nifti2HeaderSize:
		order, version = binary.BigEndian, 2
	default:
		return nil, fmt.Errorf("%s is not a NIfTI file", path)
	}

	if version == 1 {
		// NIfTI-1: int16 dim[8] at offset 40; dim[0] is the rank.
		rank := int(int16(order.Uint16(header[40:42])))
		if rank < 1 || rank > 7 {
			return nil, fmt.Errorf("%s has invalid NIfTI dimension count %d", path, rank)
		}
		shape := make([]int64, rank)
		for i := 0; i < rank; i++ {
			shape[i] = int64(int16(order.Uint16(header[42+2*i : 44+2*i])))
		}
		return shape, nil
	}

	if n < nifti2HeaderSize {
		return nil, fmt.Errorf("truncated NIfTI-2 header in %s", path)
	}
	// NIfTI-2: int64 dim[8] at offset 16; dim[0] is the rank.
	rank := int(int64(order.Uint64(header[16:24])))
	if rank < 1 || rank > 7 {
		return nil, fmt.Errorf("%s has invalid NIfTI dimension count %d", path, rank)
	}
	shape := make([]int64, rank)
	for i := 0; i < rank; i++ {
		shape[i] = int64(order.Uint64(header[24+8*i : 32+8*i]))
	}
	return shape, nil
}

// formatShape renders a dimension tuple for failure messages, e.g. (64, 64, 32).
func formatShape(shape []int64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// sameShape reports whether two dimension tuples are identical.
func sameShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
