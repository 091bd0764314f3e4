package execshell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	captureStrategyStreamingStringConstant     = "streaming"
	captureStrategyBufferedStringConstant      = "buffered"
	unsupportedCaptureStrategyTemplateConstant = "unsupported capture strategy: %s"
	captureReadBufferSizeConstant              = 32 * 1024
)

// CaptureStrategy selects how child output streams are drained.
type CaptureStrategy string

// Supported capture strategy enumerations.
const (
	// CaptureStrategyStreaming drains both streams concurrently and delivers
	// each chunk to the configured sinks as it arrives. The zero value of
	// CaptureStrategy selects this behavior.
	CaptureStrategyStreaming CaptureStrategy = CaptureStrategy(captureStrategyStreamingStringConstant)
	// CaptureStrategyBuffered drains both streams to completion without
	// incremental sink delivery; only the final accumulated buffers are
	// observable.
	CaptureStrategyBuffered CaptureStrategy = CaptureStrategy(captureStrategyBufferedStringConstant)
)

// streamCapture accumulates both output streams of a single run. Every
// accumulator mutation and the final read happen under one shared mutex held
// only for in-memory work, never across pipe reads or process waits.
type streamCapture struct {
	mutex                sync.Mutex
	standardOutputBuffer bytes.Buffer
	standardErrorBuffer  bytes.Buffer
}

func newStreamCapture() *streamCapture {
	return &streamCapture{}
}

// appendChunk writes the chunk into the selected accumulator and forwards it
// to the sink while holding the shared mutex.
func (capture *streamCapture) appendChunk(accumulator *bytes.Buffer, chunk []byte, sink StreamSink) {
	capture.mutex.Lock()
	defer capture.mutex.Unlock()

	accumulator.Write(chunk)
	if sink != nil {
		sink.HandleChunk(chunk)
	}
}

// snapshot returns both accumulated streams. Callers must only read after
// draining completed so the snapshot observes the final state.
func (capture *streamCapture) snapshot() (string, string) {
	capture.mutex.Lock()
	defer capture.mutex.Unlock()

	return capture.standardOutputBuffer.String(), capture.standardErrorBuffer.String()
}

// streamDrainer moves child output into the capture buffers. Implementations
// return once both streams reached end of file.
type streamDrainer interface {
	drain(process SpawnedProcess, capture *streamCapture, outputSink StreamSink, errorSink StreamSink) error
}

func drainerForStrategy(strategy CaptureStrategy) (streamDrainer, error) {
	switch strategy {
	case CaptureStrategyStreaming, CaptureStrategy(emptyStringConstant):
		return streamingDrainer{}, nil
	case CaptureStrategyBuffered:
		return bufferedDrainer{}, nil
	default:
		return nil, fmt.Errorf(unsupportedCaptureStrategyTemplateConstant, strategy)
	}
}

// streamingDrainer reads both pipes concurrently in fixed-size chunks and
// delivers every chunk to the capture and its sink as it arrives.
type streamingDrainer struct{}

func (streamingDrainer) drain(process SpawnedProcess, capture *streamCapture, outputSink StreamSink, errorSink StreamSink) error {
	var standardOutputDrainError error
	var standardErrorDrainError error

	drainGroup := sync.WaitGroup{}
	drainGroup.Add(2)
	go func() {
		defer drainGroup.Done()
		standardOutputDrainError = drainStream(process.StandardOutput(), &capture.standardOutputBuffer, capture, outputSink)
	}()
	go func() {
		defer drainGroup.Done()
		standardErrorDrainError = drainStream(process.StandardError(), &capture.standardErrorBuffer, capture, errorSink)
	}()
	drainGroup.Wait()

	if standardOutputDrainError != nil {
		return standardOutputDrainError
	}
	return standardErrorDrainError
}

// drainStream copies the stream into the accumulator chunk by chunk. The
// read itself happens outside the capture mutex.
func drainStream(stream io.Reader, accumulator *bytes.Buffer, capture *streamCapture, sink StreamSink) error {
	readBuffer := make([]byte, captureReadBufferSizeConstant)
	for {
		byteCount, readError := stream.Read(readBuffer)
		if byteCount > 0 {
			capture.appendChunk(accumulator, readBuffer[:byteCount], sink)
		}
		if readError != nil {
			if errors.Is(readError, io.EOF) {
				return nil
			}
			return readError
		}
	}
}

// bufferedDrainer reads both streams to completion without incremental sink
// delivery. Accumulator writes still pass through the shared capture mutex.
type bufferedDrainer struct{}

func (bufferedDrainer) drain(process SpawnedProcess, capture *streamCapture, outputSink StreamSink, errorSink StreamSink) error {
	var standardOutputDrainError error
	var standardErrorDrainError error

	drainGroup := sync.WaitGroup{}
	drainGroup.Add(2)
	go func() {
		defer drainGroup.Done()
		standardOutputDrainError = copyStream(process.StandardOutput(), &capture.standardOutputBuffer, capture)
	}()
	go func() {
		defer drainGroup.Done()
		standardErrorDrainError = copyStream(process.StandardError(), &capture.standardErrorBuffer, capture)
	}()
	drainGroup.Wait()

	if standardOutputDrainError != nil {
		return standardOutputDrainError
	}
	return standardErrorDrainError
}

func copyStream(stream io.Reader, accumulator *bytes.Buffer, capture *streamCapture) error {
	lockedWriter := &lockedBufferWriter{capture: capture, accumulator: accumulator}
	_, copyError := io.Copy(lockedWriter, stream)
	return copyError
}

// lockedBufferWriter serializes accumulator writes through the capture mutex.
type lockedBufferWriter struct {
	capture     *streamCapture
	accumulator *bytes.Buffer
}

func (writer *lockedBufferWriter) Write(data []byte) (int, error) {
	writer.capture.appendChunk(writer.accumulator, data, nil)
	return len(data), nil
}
