package handler

import (
	"fmt"
	"slices"
)

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor creates a tensor, checking that data matches the shape.
func NewTensor(shape []int, data []float32) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("invalid dimension %d in shape %v", d, shape)
		}
		n *= d
	}
	if len(data) != n {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, n, len(data))
	}
	return &Tensor{Shape: slices.Clone(shape), Data: data}, nil
}

// Zeros returns a zero-filled tensor.
func Zeros(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{Shape: slices.Clone(shape), Data: make([]float32, n)}
}

// Numel returns the number of elements.
func (t *Tensor) Numel() int {
	return len(t.Data)
}

func shapeSize(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// HasShape reports whether t has exactly the given shape.
func (t *Tensor) HasShape(shape ...int) bool {
	return slices.Equal(t.Shape, shape)
}

// concatRows stacks 2D (or 1D) tensors along the first dimension.
func concatRows(ts ...*Tensor) *Tensor {
	rows := 0
	tail := ts[0].Shape[1:]
	size := 0
	for _, t := range ts {
		rows += t.Shape[0]
		size += len(t.Data)
	}
	data := make([]float32, 0, size)
	for _, t := range ts {
		data = append(data, t.Data...)
	}
	shape := append([]int{rows}, tail...)
	return &Tensor{Shape: shape, Data: data}
}

// transpose2D swaps the two dimensions of a matrix.
func transpose2D(t *Tensor) *Tensor {
	r, c := t.Shape[0], t.Shape[1]
	out := make([]float32, len(t.Data))
	for i := range r {
		for j := range c {
			out[j*r+i] = t.Data[i*c+j]
		}
	}
	return &Tensor{Shape: []int{c, r}, Data: out}
}

// rowBlocks gathers rows [start, start+n) from each of blocks consecutive
// groups of blockRows rows, in order.
func rowBlocks(t *Tensor, blocks, blockRows, start, n int) *Tensor {
	width := 1
	for _, d := range t.Shape[1:] {
		width *= d
	}
	data := make([]float32, 0, blocks*n*width)
	for b := range blocks {
		from := (b*blockRows + start) * width
		data = append(data, t.Data[from:from+n*width]...)
	}
	shape := append([]int{blocks * n}, t.Shape[1:]...)
	return &Tensor{Shape: shape, Data: data}
}
