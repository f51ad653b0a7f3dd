package tcgemm

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// defaultSystemMemory is assumed when the platform query is unavailable.
const defaultSystemMemory = 16 * 1024 * 1024 * 1024 // 16GB

// defaultSharedMemPerBlock mirrors the per-block scratch budget of the
// accelerators this runtime emulates. SharedMemRequired() must fit within
// it for the staged kernel to be eligible.
const defaultSharedMemPerBlock = 96 * 1024

// Device describes the compute device. On CPU the worker count plays the
// role of the streaming-multiprocessor count: it is the number of thread
// blocks resident at once, and therefore the stride of the tile schedule.
type Device struct {
	ID                int    // Unique device identifier
	Name              string // Human-readable device name
	TotalMem          uint64 // Total available memory in bytes
	NumCores          int    // Number of CPU cores
	NumWorkers        int    // Concurrently resident thread blocks
	SharedMemPerBlock int    // Per-block scratch budget in bytes
}

// Context manages device resources, memory allocation and stream
// execution. A Context must exist before any operation; the package keeps
// a default one, created at init.
type Context struct {
	device        *Device
	streams       map[int]*Stream
	streamID      int32
	memory        *MemoryPool
	defaultStream *Stream
}

// Stream is an ordered sequence of asynchronously executed operations.
// Operations within a stream run in order; different streams may overlap.
type Stream struct {
	id    int
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
}

// Global runtime state
var (
	defaultDevice  *Device
	defaultContext *Context
	initOnce       sync.Once
)

func init() {
	initOnce.Do(func() {
		defaultDevice = &Device{
			ID:                0,
			Name:              "CPU",
			TotalMem:          getSystemMemory(),
			NumCores:          runtime.NumCPU(),
			NumWorkers:        runtime.NumCPU(),
			SharedMemPerBlock: defaultSharedMemPerBlock,
		}

		defaultContext = &Context{
			device:  defaultDevice,
			streams: make(map[int]*Stream),
			memory:  NewMemoryPool(),
		}

		defaultContext.defaultStream = defaultContext.CreateStream()
	})
}

// Malloc allocates aligned device memory from the default context.
//
// Example:
//
//	dA, err := tcgemm.Malloc(m * k * 2) // m*k half operands
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tcgemm.Free(dA)
func Malloc(size int) (DevicePtr, error) {
	return defaultContext.Malloc(size)
}

// Free releases device memory allocated by Malloc.
func Free(ptr DevicePtr) error {
	return defaultContext.Free(ptr)
}

// Memcpy copies memory between host slices and device pointers using the
// default context. size is in bytes.
func Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	return defaultContext.Memcpy(dst, src, size, kind)
}

// Synchronize waits for all outstanding operations on all streams.
func Synchronize() error {
	return defaultContext.Synchronize()
}

// GetDevice returns the current device information.
func GetDevice() *Device {
	return defaultDevice
}

// GetDeviceCount returns the number of available devices (always 1).
func GetDeviceCount() int {
	return 1
}

// SetDevice sets the active device (only device 0 exists).
func SetDevice(id int) error {
	if id != 0 {
		return ErrInvalidDevice
	}
	return nil
}

// Context methods

// CreateStream creates a new execution stream backed by a worker
// goroutine.
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := &Stream{
		id:    id,
		tasks: make(chan func(), 1000),
		done:  make(chan struct{}),
	}

	go stream.worker()

	ctx.streams[id] = stream
	return stream
}

// Synchronize waits for all streams to complete.
func (ctx *Context) Synchronize() error {
	for _, stream := range ctx.streams {
		stream.Synchronize()
	}
	return nil
}

// Device returns the context's device.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Stream methods

// worker processes tasks for a stream in submission order.
func (s *Stream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
	close(s.done)
}

// Synchronize waits for all tasks in the stream to complete.
func (s *Stream) Synchronize() {
	s.wg.Wait()
}

// Submit adds a task to the stream.
func (s *Stream) Submit(task func()) {
	s.wg.Add(1)
	s.tasks <- task
}
