package tensor

// Device represents the storage/execution mode of a tensor.
type Device int

// Supported devices.
const (
	Host Device = iota
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case Host:
		return "Host"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}
