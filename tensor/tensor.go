package tensor

import "fmt"

// Tensor represents a multi-dimensional array
type Tensor struct {
	Data  []float32
	Shape []int
}

// NewTensor creates a new tensor with given shape
func NewTensor(shape ...int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return &Tensor{
		Data:  make([]float32, size),
		Shape: shape,
	}
}

// FromSlice creates a tensor with given shape and copies the data into it
func FromSlice(data []float32, shape ...int) *Tensor {
	t := NewTensor(shape...)
	if len(data) != len(t.Data) {
		panic(fmt.Sprintf("data length %d does not match shape %v", len(data), shape))
	}
	copy(t.Data, data)
	return t
}

// Size returns total number of elements
func (t *Tensor) Size() int {
	size := 1
	for _, dim := range t.Shape {
		size *= dim
	}
	return size
}

// At returns element at given indices
func (t *Tensor) At(indices ...int) float32 {
	return t.Data[t.flatIndex(indices)]
}

// Set sets element at given indices
func (t *Tensor) Set(val float32, indices ...int) {
	t.Data[t.flatIndex(indices)] = val
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("wrong number of indices: got %d, want %d", len(indices), len(t.Shape)))
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}
	return idx
}

// Clone returns a deep copy
func (t *Tensor) Clone() *Tensor {
	c := NewTensor(append([]int{}, t.Shape...)...)
	copy(c.Data, t.Data)
	return c
}

// Equal reports whether two tensors have identical shape and data
func Equal(a, b *Tensor) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	return true
}

// Stack stacks n same-shaped tensors along a new dimension inserted at dim.
// Stacking [a, b] of shape [x, y] at dim 1 yields shape [x, 2, y].
func Stack(ts []*Tensor, dim int) *Tensor {
	if len(ts) == 0 {
		panic("Stack requires at least one tensor")
	}
	base := ts[0].Shape
	if dim < 0 || dim > len(base) {
		panic(fmt.Sprintf("stack dim %d out of range for rank %d", dim, len(base)))
	}
	for _, t := range ts[1:] {
		if len(t.Shape) != len(base) {
			panic("all tensors must have the same rank")
		}
		for i := range base {
			if t.Shape[i] != base[i] {
				panic(fmt.Sprintf("all tensors must have the same shape: %v vs %v", t.Shape, base))
			}
		}
	}

	n := len(ts)
	outShape := make([]int, 0, len(base)+1)
	outShape = append(outShape, base[:dim]...)
	outShape = append(outShape, n)
	outShape = append(outShape, base[dim:]...)
	out := NewTensor(outShape...)

	outer := 1
	for _, d := range base[:dim] {
		outer *= d
	}
	inner := 1
	for _, d := range base[dim:] {
		inner *= d
	}

	for j, t := range ts {
		for o := 0; o < outer; o++ {
			src := t.Data[o*inner : (o+1)*inner]
			dst := out.Data[(o*n+j)*inner : (o*n+j+1)*inner]
			copy(dst, src)
		}
	}
	return out
}

// SliceDim extracts the i-th slice along dim, removing that dimension.
// Inverse of Stack: SliceDim(Stack(ts, d), d, i) == ts[i].
func SliceDim(t *Tensor, dim, i int) *Tensor {
	if dim < 0 || dim >= len(t.Shape) {
		panic(fmt.Sprintf("slice dim %d out of range for rank %d", dim, len(t.Shape)))
	}
	n := t.Shape[dim]
	if i < 0 || i >= n {
		panic(fmt.Sprintf("slice index %d out of range for dim of size %d", i, n))
	}

	outShape := make([]int, 0, len(t.Shape)-1)
	outShape = append(outShape, t.Shape[:dim]...)
	outShape = append(outShape, t.Shape[dim+1:]...)
	out := NewTensor(outShape...)

	outer := 1
	for _, d := range t.Shape[:dim] {
		outer *= d
	}
	inner := 1
	for _, d := range t.Shape[dim+1:] {
		inner *= d
	}

	for o := 0; o < outer; o++ {
		src := t.Data[(o*n+i)*inner : (o*n+i+1)*inner]
		dst := out.Data[o*inner : (o+1)*inner]
		copy(dst, src)
	}
	return out
}
