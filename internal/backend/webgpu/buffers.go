//go:build windows

package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// asBytes reinterprets a tensor's float32 store as raw bytes.
func asBytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy reinterpretation
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

// createBuffer creates a device buffer and uploads the initial data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// readBuffer reads a device buffer back to host memory through a staging
// buffer, since storage buffers cannot be mapped directly.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer stagingBuffer.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size)
	if err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)

	stagingBuffer.Unmap()

	return result, nil
}

// EnableGPUMode migrates an owning tensor's backing store to the device and
// tags the tensor as device-resident. The host store remains valid as a
// staging copy. Observing tensors inherit their source's mode on the next
// ObserveRow and must not be migrated individually.
func (b *Backend) EnableGPUMode(t *tensor.Tensor) error {
	if t.IsObserving() {
		return fmt.Errorf("webgpu: cannot migrate an observing tensor; migrate its source")
	}
	if t.IsInGPUMode() {
		return nil
	}

	buffer := b.createBuffer(asBytes(t.Data()),
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)

	b.mu.Lock()
	b.buffers[t] = buffer
	b.mu.Unlock()

	t.SetDevice(tensor.WebGPU)
	return nil
}

// Download copies a migrated tensor's device buffer back into its host
// store, releases the buffer and switches the tensor to host mode.
func (b *Backend) Download(t *tensor.Tensor) error {
	b.mu.Lock()
	buffer, ok := b.buffers[t]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("webgpu: tensor has no device buffer")
	}

	data, err := b.readBuffer(buffer, uint64(t.ItemCount()*4))
	if err != nil {
		return err
	}
	copy(asBytes(t.Data()), data)

	b.mu.Lock()
	delete(b.buffers, t)
	b.mu.Unlock()
	buffer.Release()

	t.SetDevice(tensor.Host)
	return nil
}
