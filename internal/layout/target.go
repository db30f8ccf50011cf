package layout

import "fmt"

// AddressSpace selects the host-shareable layout rules.
//
// Uniform buffers additionally round array strides and struct member
// alignment up to 16 bytes.
type AddressSpace uint8

const (
	Storage AddressSpace = iota
	Uniform
)

func (s AddressSpace) String() string {
	if s == Uniform {
		return "uniform"
	}
	return "storage"
}

// ParseAddressSpace accepts "storage" or "uniform".
func ParseAddressSpace(s string) (AddressSpace, error) {
	switch s {
	case "", "storage":
		return Storage, nil
	case "uniform":
		return Uniform, nil
	default:
		return Storage, fmt.Errorf("unknown address space %q (expected storage|uniform)", s)
	}
}
