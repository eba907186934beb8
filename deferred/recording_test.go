package deferred

import (
	"errors"
	"slices"

	"github.com/gogpu/wgpu/hal"
)

var errInjected = errors.New("injected failure")

// event is one call seen by the recording wrappers.
type event struct {
	kind  string // write, submit, poll, transition or dispatch
	label string // encoder label, for submit, transition and dispatch
	value uint64 // submission index, completed index, mip level or group count
	data  []byte
}

// trace is the ordered list of calls made on the device and queue.
type trace struct {
	events []event
}

func (t *trace) add(e event) { t.events = append(t.events, e) }

// labeledCommand remembers which encoder produced a command buffer.
type labeledCommand struct {
	hal.CommandBuffer
	label string
}

func unwrap(cmds []hal.CommandBuffer) ([]hal.CommandBuffer, string) {
	out := make([]hal.CommandBuffer, len(cmds))
	label := ""
	for i, c := range cmds {
		if lc, ok := c.(*labeledCommand); ok {
			out[i], label = lc.CommandBuffer, lc.label
			continue
		}
		out[i] = c
	}
	return out, label
}

// recordingQueue traces submissions, completion polls and buffer writes.
type recordingQueue struct {
	hal.Queue
	trace *trace

	// onSubmit runs before a command buffer from the labeled encoder
	// reaches the queue.
	onSubmit func(label string)
}

func (q *recordingQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	inner, label := unwrap(cmds)
	if q.onSubmit != nil {
		q.onSubmit(label)
	}
	idx, err := q.Queue.Submit(inner)
	if err == nil {
		q.trace.add(event{kind: "submit", label: label, value: idx})
	}
	return idx, err
}

func (q *recordingQueue) PollCompleted() uint64 {
	v := q.Queue.PollCompleted()
	q.trace.add(event{kind: "poll", value: v})
	return v
}

func (q *recordingQueue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	q.trace.add(event{kind: "write", value: offset, data: slices.Clone(data)})
	return q.Queue.WriteBuffer(buffer, offset, data)
}

// recordingDevice counts compute pipelines and command encoders and can
// fail the n-th compute pipeline creation.
type recordingDevice struct {
	hal.Device
	trace *trace

	failCompute      int
	computeCalls     int
	computeCreated   int
	computeDestroyed int
	encodersCreated  int
	encodersFreed    int
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	d.encodersCreated++
	return &recordingEncoder{CommandEncoder: enc, label: desc.Label, dev: d}, nil
}

func (d *recordingDevice) FreeCommandBuffer(cmd hal.CommandBuffer) {
	inner, _ := unwrap([]hal.CommandBuffer{cmd})
	d.Device.FreeCommandBuffer(inner[0])
}

func (d *recordingDevice) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	d.computeCalls++
	if d.computeCalls == d.failCompute {
		return nil, errInjected
	}
	p, err := d.Device.CreateComputePipeline(desc)
	if err == nil {
		d.computeCreated++
	}
	return p, err
}

func (d *recordingDevice) DestroyComputePipeline(p hal.ComputePipeline) {
	d.computeDestroyed++
	d.Device.DestroyComputePipeline(p)
}

// recordingEncoder traces single-level texture transitions and compute
// dispatches. Whole-resource barriers from the graph are not traced.
type recordingEncoder struct {
	hal.CommandEncoder
	label string
	dev   *recordingDevice
}

func (e *recordingEncoder) EndEncoding() (hal.CommandBuffer, error) {
	cmd, err := e.CommandEncoder.EndEncoding()
	if err != nil {
		return nil, err
	}
	return &labeledCommand{CommandBuffer: cmd, label: e.label}, nil
}

func (e *recordingEncoder) ResetAll(cmds []hal.CommandBuffer) {
	inner, _ := unwrap(cmds)
	e.CommandEncoder.ResetAll(inner)
}

func (e *recordingEncoder) TransitionTextures(barriers []hal.TextureBarrier) {
	for _, b := range barriers {
		if b.Range.MipLevelCount == 1 {
			e.dev.trace.add(event{kind: "transition", label: e.label, value: uint64(b.Range.BaseMipLevel)})
		}
	}
	e.CommandEncoder.TransitionTextures(barriers)
}

func (e *recordingEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	return &recordingComputePass{ComputePassEncoder: e.CommandEncoder.BeginComputePass(desc), enc: e}
}

func (e *recordingEncoder) Destroy() {
	e.dev.encodersFreed++
	e.CommandEncoder.Destroy()
}

type recordingComputePass struct {
	hal.ComputePassEncoder
	enc *recordingEncoder
}

func (p *recordingComputePass) Dispatch(x, y, z uint32) {
	p.enc.dev.trace.add(event{kind: "dispatch", label: p.enc.label, value: uint64(x)})
	p.ComputePassEncoder.Dispatch(x, y, z)
}

// newRecordingDevice wraps a noop device and queue with a shared trace.
func newRecordingDevice(device hal.Device, queue hal.Queue) (*recordingDevice, *recordingQueue) {
	tr := &trace{}
	return &recordingDevice{Device: device, trace: tr}, &recordingQueue{Queue: queue, trace: tr}
}
