package backend

import "github.com/oicirtap/taco/internal/notation"

// Props names which lowered-kernel responsibilities a FuncHandle covers;
// a caller may request both at once to fuse assembly with compute.
type Props uint8

const (
	Assemble Props = 1 << iota
	Compute
)

// FuncHandle is an opaque reference to a lowered kernel, returned by
// LowerAssemble/LowerCompute and later named in AddFunction/Invoke. Its
// only public contract is a stable Name; everything else about it is
// backend-specific.
type FuncHandle interface {
	Name() string
}

// KernelBackend is the external collaborator that turns a canonicalized
// Assignment into runnable code. This module treats it as opaque;
// backend/refkernel supplies the one concrete implementation this module
// ships, for tests.
type KernelBackend interface {
	LowerAssemble(stmt *notation.Assignment, name string, props Props, allocSize int) (FuncHandle, error)
	LowerCompute(stmt *notation.Assignment, name string, props Props, allocSize int) (FuncHandle, error)
	AddFunction(FuncHandle) error
	CompileModule() error
	Invoke(name string, tensors []*TacoTensorT) error
}
