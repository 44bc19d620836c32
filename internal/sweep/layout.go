package sweep

import "github.com/gogpu/gputypes"

// positionStride is the byte size of one (x, y) float32 vertex.
const positionStride = valuesPerVertex * 4

// copyBufferAlignment is the size multiple GPU buffer writes require.
const copyBufferAlignment = 4

// VertexLayout describes the position buffer to a render pipeline.
// Raw values are bound as a separate storage buffer and indexed by vertex.
func VertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: positionStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		},
	}
}

// PrimitiveState describes how the vertex buffer is assembled: an unindexed
// triangle list. Sweeps wind both ways depending on azimuth, so nothing is
// culled.
func PrimitiveState() gputypes.PrimitiveState {
	return gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleList,
		CullMode: gputypes.CullModeNone,
	}
}

// BufferDescriptor sizes one GPU buffer for a sweep upload.
type BufferDescriptor struct {
	Label         string
	Size          uint64
	Usage         gputypes.BufferUsage
	ComponentSize int
}

// BufferDescriptors returns the position and raw value buffers needed to
// upload s. Sizes are rounded up to the copy alignment.
func BufferDescriptors(s *Sweep) []BufferDescriptor {
	if s == nil {
		return nil
	}
	return []BufferDescriptor{
		{
			Label:         "sweep positions",
			Size:          alignUp(uint64(len(s.Vertices)) * 4),
			Usage:         gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
			ComponentSize: 4,
		},
		{
			Label:         "sweep raw values",
			Size:          alignUp(uint64(s.RawLen() * s.ComponentSize())),
			Usage:         gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
			ComponentSize: s.ComponentSize(),
		},
	}
}

func alignUp(n uint64) uint64 {
	return (n + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
}

// Upload is everything a renderer needs to size and bind one sweep.
type Upload struct {
	Layout      gputypes.VertexBufferLayout
	Primitive   gputypes.PrimitiveState
	Buffers     []BufferDescriptor
	VertexCount int
}

// UploadFor returns the upload plan for s. It reports false for a nil sweep.
func UploadFor(s *Sweep) (Upload, bool) {
	if s == nil {
		return Upload{}, false
	}
	return Upload{
		Layout:      VertexLayout(),
		Primitive:   PrimitiveState(),
		Buffers:     BufferDescriptors(s),
		VertexCount: s.VertexCount(),
	}, true
}
