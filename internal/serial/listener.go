// Package serial reads newline-delimited frames from a serial device.
package serial

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	goserial "go.bug.st/serial"

	"github.com/Ramdhani171024/uts-iot/internal/config"
	"github.com/Ramdhani171024/uts-iot/internal/metrics"
)

// MaxFrameSize bounds a single frame. Longer lines are dropped whole.
const MaxFrameSize = 64 << 10

const transport = "serial"

// Opener opens the named device. OpenPort is the real one.
type Opener func(name string, baud int) (io.ReadCloser, error)

func OpenPort(name string, baud int) (io.ReadCloser, error) {
	return goserial.Open(name, &goserial.Mode{BaudRate: baud})
}

// FrameHandler receives one frame without its line terminator. The slice is
// owned by the handler.
type FrameHandler func(frame []byte)

type Listener struct {
	name   string
	baud   int
	reopen time.Duration
	open   Opener

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	port io.ReadCloser
}

// NewListener returns a listener for cfg.SerialPort. A nil opener means OpenPort.
func NewListener(cfg config.Config, open Opener, logger *slog.Logger, m *metrics.Metrics) *Listener {
	if open == nil {
		open = OpenPort
	}
	return &Listener{
		name:    cfg.SerialPort,
		baud:    cfg.SerialBaud,
		reopen:  cfg.SerialReopenInterval,
		open:    open,
		logger:  logger.With("transport", transport, "port", cfg.SerialPort),
		metrics: m,
	}
}

// Open opens the device if it is not open yet. Run calls it as needed; calling
// it up front lets startup failures be reported before the read loop starts.
func (l *Listener) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port != nil {
		return nil
	}

	p, err := l.open(l.name, l.baud)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", l.name, err)
	}
	l.port = p
	l.metrics.SetTransportUp(transport, true)
	l.logger.Info("serial port opened", "baud", l.baud)
	return nil
}

func (l *Listener) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// Run reads frames until ctx is done. Read and open failures close the device
// and retry after the reopen interval; they never end Run.
func (l *Listener) Run(ctx context.Context, handle FrameHandler) {
	for {
		err := l.Open()
		if err == nil {
			err = l.readFrames(ctx, handle)
			l.closePort()
		}
		if ctx.Err() != nil {
			return
		}

		l.logger.Warn("serial listener interrupted", "error", err, "retry_in", l.reopen)
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reopen):
		}
	}
}

func (l *Listener) readFrames(ctx context.Context, handle FrameHandler) error {
	l.mu.Lock()
	port := l.port
	l.mu.Unlock()

	// Closing the port is the only way to unblock a pending Read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.closePort()
		case <-done:
		}
	}()

	r := bufio.NewReaderSize(port, MaxFrameSize)
	oversized := false
	for {
		line, err := r.ReadSlice('\n')
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			if !oversized {
				l.logger.Warn("serial frame too long, dropping", "limit", MaxFrameSize)
			}
			oversized = true
			continue
		case oversized:
			// Tail of a frame that was already dropped.
			oversized = false
		default:
			l.dispatch(line, handle)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("serial port closed")
			}
			return fmt.Errorf("read serial port: %w", err)
		}
	}
}

func (l *Listener) dispatch(line []byte, handle FrameHandler) {
	frame := bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(frame)) == 0 {
		return
	}
	frame = bytes.Clone(frame)

	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("serial frame handler panicked", "panic", p)
		}
	}()
	handle(frame)
}

func (l *Listener) closePort() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return
	}
	if err := l.port.Close(); err != nil {
		l.logger.Debug("serial port close", "error", err)
	}
	l.port = nil
	l.metrics.SetTransportUp(transport, false)
	l.logger.Info("serial port closed")
}
