// Package snapshot defines the serialized forms of Karel worlds and
// compiled program images. The encoding is canonical CBOR so identical
// state always produces identical bytes.
package snapshot

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/atvexy/karel/vm"
)

// Format versions, bumped on any incompatible layout change.
const (
	WorldVersion = 1
	ImageVersion = 1
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// World is a serialized world: the exchange-format cell array (walls as 255)
// plus the 5-word robot record.
type World struct {
	Version int       `cbor:"v"`
	Side    int       `cbor:"side"`
	Cells   []byte    `cbor:"cells"`
	Robot   [5]uint32 `cbor:"robot"`
}

// Image is a serialized compiled program: the bytecode image and its symbol
// bindings. Side is recorded so images compiled against a different grid
// geometry are rejected at load.
type Image struct {
	Version int            `cbor:"v"`
	Side    int            `cbor:"side"`
	Code    []byte         `cbor:"code"`
	Symbols map[string]int `cbor:"symbols"`
}

// CaptureWorld reads the VM's current world into a snapshot.
func CaptureWorld(v *vm.VM) (*World, error) {
	cells := make([]byte, vm.WorldCells)
	if st := v.ReadWorld(cells); st != vm.StatusSuccess {
		return nil, fmt.Errorf("snapshot: world export failed: %s", st)
	}
	return &World{
		Version: WorldVersion,
		Side:    vm.GridSize,
		Cells:   cells,
		Robot:   [5]uint32(v.RobotState()),
	}, nil
}

// RestoreWorld imports a snapshot into the VM.
func RestoreWorld(v *vm.VM, w *World) error {
	if w.Version != WorldVersion {
		return fmt.Errorf("snapshot: unsupported world version %d", w.Version)
	}
	if w.Side != vm.GridSize {
		return fmt.Errorf("snapshot: world side %d does not match grid side %d", w.Side, vm.GridSize)
	}
	if st := v.LoadWorld(w.Cells, vm.RobotRecord(w.Robot)); st != vm.StatusSuccess {
		return fmt.Errorf("snapshot: world import failed: %s", st)
	}
	return nil
}

// CaptureImage wraps a compiled program as a snapshot.
func CaptureImage(prog *vm.Program) *Image {
	symbols := make(map[string]int, prog.Symbols.Len())
	prog.Symbols.Each(func(name string, pc int) {
		symbols[name] = pc
	})
	return &Image{
		Version: ImageVersion,
		Side:    vm.GridSize,
		Code:    prog.Code,
		Symbols: symbols,
	}
}

// RestoreImage converts a snapshot back into a loadable program.
func RestoreImage(img *Image) (*vm.Program, error) {
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("snapshot: unsupported image version %d", img.Version)
	}
	if img.Side != vm.GridSize {
		return nil, fmt.Errorf("snapshot: image side %d does not match grid side %d", img.Side, vm.GridSize)
	}
	symbols := vm.NewSymbolTable()
	for name, pc := range img.Symbols {
		symbols.Insert(name, pc)
	}
	return &vm.Program{Code: img.Code, Symbols: symbols}, nil
}

// MarshalWorld serializes a World to CBOR bytes.
func MarshalWorld(w *World) ([]byte, error) {
	return cborEncMode.Marshal(w)
}

// UnmarshalWorld deserializes a World from CBOR bytes.
func UnmarshalWorld(data []byte) (*World, error) {
	var w World
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal world: %w", err)
	}
	return &w, nil
}

// MarshalImage serializes an Image to CBOR bytes.
func MarshalImage(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalImage deserializes an Image from CBOR bytes.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal image: %w", err)
	}
	return &img, nil
}
