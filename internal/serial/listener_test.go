package serial

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramdhani171024/uts-iot/internal/config"
	"github.com/Ramdhani171024/uts-iot/internal/logging"
	"github.com/Ramdhani171024/uts-iot/internal/metrics"
)

// fakeDevice hands out one pipe per successful open.
type fakeDevice struct {
	mu    sync.Mutex
	fails int
	opens int
	names []string
	bauds []int

	writers chan *io.PipeWriter
}

func newFakeDevice(fails int) *fakeDevice {
	return &fakeDevice{fails: fails, writers: make(chan *io.PipeWriter, 8)}
}

func (d *fakeDevice) open(name string, baud int) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	d.names = append(d.names, name)
	d.bauds = append(d.bauds, baud)
	if d.fails > 0 {
		d.fails--
		return nil, errors.New("no such device")
	}
	r, w := io.Pipe()
	d.writers <- w
	return r, nil
}

func (d *fakeDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

func (d *fakeDevice) next(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case w := <-d.writers:
		return w
	case <-time.After(5 * time.Second):
		t.Fatal("device was not opened")
		return nil
	}
}

func testConfig() config.Config {
	return config.Config{
		SerialPort:           "/dev/ttyUSB0",
		SerialBaud:           115200,
		SerialReopenInterval: 10 * time.Millisecond,
	}
}

type harness struct {
	listener *Listener
	device   *fakeDevice
	metrics  *metrics.Metrics
	frames   chan string
	cancel   context.CancelFunc
	done     chan struct{}
}

func start(t *testing.T, device *fakeDevice, handle FrameHandler) *harness {
	t.Helper()
	m := metrics.New()
	h := &harness{
		listener: NewListener(testConfig(), device.open, logging.Discard(), m),
		device:   device,
		metrics:  m,
		frames:   make(chan string, 64),
		done:     make(chan struct{}),
	}
	if handle == nil {
		handle = func(frame []byte) { h.frames <- string(frame) }
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.done)
		h.listener.Run(ctx, handle)
	}()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
}

func (h *harness) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		select {
		case got := <-h.frames:
			assert.Equal(t, w, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for frame %q", w)
		}
	}
}

func write(t *testing.T, w io.Writer, s string) {
	t.Helper()
	_, err := io.WriteString(w, s)
	require.NoError(t, err)
}

func TestListener_framesAreSplitOnNewline(t *testing.T) {
	h := start(t, newFakeDevice(0), nil)
	w := h.device.next(t)

	write(t, w, "{not json}\n{\"suhu\":25.3}\r\n\n   \r\n{\"lux\":")
	write(t, w, "120}\n")

	h.expect(t, "{not json}", `{"suhu":25.3}`, `{"lux":120}`)
	assert.Equal(t, []string{"/dev/ttyUSB0"}, h.device.names)
	assert.Equal(t, []int{115200}, h.device.bauds)
	assert.True(t, h.listener.IsOpen())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TransportStatus.WithLabelValues("serial")))
}

func TestListener_oversizedFrameDropped(t *testing.T) {
	h := start(t, newFakeDevice(0), nil)
	w := h.device.next(t)

	write(t, w, strings.Repeat("x", MaxFrameSize+100)+"\n")
	write(t, w, "after\n")

	h.expect(t, "after")
}

func TestListener_handlerPanicDoesNotEndStream(t *testing.T) {
	frames := make(chan string, 4)
	h := start(t, newFakeDevice(0), func(frame []byte) {
		if string(frame) == "bad" {
			panic("handler failure")
		}
		frames <- string(frame)
	})
	w := h.device.next(t)

	write(t, w, "bad\ngood\n")

	select {
	case got := <-frames:
		assert.Equal(t, "good", got)
	case <-time.After(5 * time.Second):
		t.Fatal("listener stopped after handler panic")
	}
}

func TestListener_reopensAfterDeviceCloses(t *testing.T) {
	h := start(t, newFakeDevice(0), nil)

	first := h.device.next(t)
	write(t, first, "one\n")
	h.expect(t, "one")
	require.NoError(t, first.Close())

	second := h.device.next(t)
	write(t, second, "two\n")
	h.expect(t, "two")
	assert.Equal(t, 2, h.device.openCount())
}

func TestListener_retriesFailedOpen(t *testing.T) {
	h := start(t, newFakeDevice(3), nil)

	w := h.device.next(t)
	write(t, w, "ready\n")
	h.expect(t, "ready")
	assert.Equal(t, 4, h.device.openCount())
}

func TestListener_stopClosesPort(t *testing.T) {
	h := start(t, newFakeDevice(0), nil)
	w := h.device.next(t)
	write(t, w, "one\n")
	h.expect(t, "one")

	h.stop()

	assert.False(t, h.listener.IsOpen())
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.TransportStatus.WithLabelValues("serial")))
	_, err := w.Write([]byte("late\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestOpen_reportsFailure(t *testing.T) {
	l := NewListener(testConfig(), newFakeDevice(1).open, logging.Discard(), metrics.New())

	err := l.Open()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/ttyUSB0")
	assert.False(t, l.IsOpen())

	require.NoError(t, l.Open())
	require.NoError(t, l.Open())
	assert.True(t, l.IsOpen())
	l.closePort()
}
