package execshell

import "io"

// StreamSink receives captured output chunks for one stream of a single run.
//
// HandleChunk is called from inside the run's capture serialization domain,
// so implementations need no locking against concurrent chunk delivery for
// that run. The chunk slice is reused between calls and must not be retained
// after HandleChunk returns. Attach distinct sink instances when issuing
// concurrent runs on a shared executor.
type StreamSink interface {
	// HandleChunk observes the next chunk of the stream in arrival order.
	HandleChunk(chunk []byte)
	// Finish signals that no further chunks will arrive for the run. It is
	// invoked exactly once per run, after the child exited and the final
	// chunk was delivered.
	Finish()
}

// ChunkHandlerFunc adapts a plain function to the StreamSink interface with a
// no-op Finish.
type ChunkHandlerFunc func(chunk []byte)

// HandleChunk implements StreamSink by invoking the wrapped function.
func (handler ChunkHandlerFunc) HandleChunk(chunk []byte) {
	if handler == nil {
		return
	}
	handler(chunk)
}

// Finish implements StreamSink as a no-op.
func (handler ChunkHandlerFunc) Finish() {}

// WriterSink forwards captured chunks to an io.Writer as they arrive.
type WriterSink struct {
	writer io.Writer
}

// NewWriterSink wraps the provided writer in a StreamSink. Write errors are
// discarded so a failing destination cannot disturb the capture protocol.
func NewWriterSink(writer io.Writer) *WriterSink {
	return &WriterSink{writer: writer}
}

// HandleChunk implements StreamSink by writing the chunk to the wrapped writer.
func (sink *WriterSink) HandleChunk(chunk []byte) {
	if sink == nil || sink.writer == nil {
		return
	}
	_, _ = sink.writer.Write(chunk)
}

// Finish implements StreamSink as a no-op; the wrapped writer stays open.
func (sink *WriterSink) Finish() {}
