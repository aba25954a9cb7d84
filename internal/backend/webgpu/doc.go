// Package webgpu implements the device storage backend on top of
// go-webgpu (github.com/go-webgpu/webgpu), a zero-CGO WebGPU binding.
//
// The backend owns real device resources: instance, adapter, device and
// queue acquisition, buffer upload for EnableGPUMode and staged readback
// for Download. Compute kernel bodies are not implemented; every compute
// operation fails with an unsupported-mode panic, so device mode is a
// storage contract only.
//
// The binding is Windows-only at v0.1.0, so all implementation files carry
// a windows build constraint.
package webgpu
