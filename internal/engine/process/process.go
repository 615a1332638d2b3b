// Package process runs the document engine as an external program.
//
// The engine reads one JSON frame per line on stdin and answers with JSON
// frames on stdout:
//
//	-> {"type":"script","script":"..."}
//	<- {"type":"text","text":"done"}
//	<- {"type":"binary","data":"<base64>"}
//
// Lines on stderr, and stdout lines that are not frames, are surfaced as
// messages from foreign origins so the bridge treats them as chatter.
package process

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"layersmith/internal/engine"
	"layersmith/internal/logging"
)

// DefaultOrigin names process engines on the message bus.
const DefaultOrigin = "engine://process"

const (
	frameScript = "script"
	frameText   = "text"
	frameBinary = "binary"

	messageBuffer = 64
	programQueue  = 4
)

var (
	ErrClosed    = errors.New("process: engine closed")
	ErrQueueFull = errors.New("process: program queue full")
)

type frame struct {
	Type   string `json:"type"`
	Script string `json:"script,omitempty"`
	Text   string `json:"text,omitempty"`
	Data   []byte `json:"data,omitempty"`
}

// Options configures process engines.
type Options struct {
	// Command is the engine argv.
	Command []string
	// Env is appended to the current environment.
	Env    []string
	Origin string
	Logger *slog.Logger
}

// Surface embeds process engines.
type Surface struct {
	opts Options
}

func NewSurface(opts Options) *Surface {
	if opts.Origin == "" {
		opts.Origin = DefaultOrigin
	}
	opts.Logger = logging.NewComponentLogger(opts.Logger, "engine_process")
	return &Surface{opts: opts}
}

// Embed starts the engine process. The process is killed when ctx is done
// or the endpoint is closed.
func (s *Surface) Embed(ctx context.Context) (engine.Endpoint, error) {
	if len(s.opts.Command) == 0 {
		return nil, errors.New("process: engine command is empty")
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, s.opts.Command[0], s.opts.Command[1:]...)
	cmd.Env = append(os.Environ(), s.opts.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("process: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("process: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("process: start %s: %w", s.opts.Command[0], err)
	}

	ep := &endpoint{
		origin:   s.opts.Origin,
		logger:   s.opts.Logger.With(logging.Int("pid", cmd.Process.Pid)),
		ctx:      ctx,
		cancel:   cancel,
		cmd:      cmd,
		stdin:    stdin,
		programs: make(chan []byte, programQueue),
		messages: make(chan engine.Message, messageBuffer),
		loaded:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	close(ep.loaded)
	ep.logger.Info("engine process started", logging.String("command", s.opts.Command[0]))

	go ep.writePrograms()

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		ep.readFrames(stdout)
	}()
	go func() {
		defer readers.Done()
		ep.readChatter(stderr, ep.origin+"/stderr")
	}()
	go func() {
		readers.Wait()
		err := cmd.Wait()
		ep.logger.Debug("engine process exited", logging.Error(err))
		close(ep.messages)
		close(ep.done)
	}()
	return ep, nil
}

type endpoint struct {
	origin string
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	cmd    *exec.Cmd

	// stdin is written only by writePrograms.
	stdin    io.WriteCloser
	programs chan []byte

	mu       sync.Mutex
	closed   bool
	writeErr error

	messages chan engine.Message
	loaded   chan struct{}
	done     chan struct{}
}

func (e *endpoint) Origin() string { return e.origin }

func (e *endpoint) Messages() <-chan engine.Message { return e.messages }

func (e *endpoint) Loaded() <-chan struct{} { return e.loaded }

// Post queues one script frame for the engine's stdin and returns without
// waiting for the write. An engine that stops reading fills the queue and
// further posts fail with ErrQueueFull.
func (e *endpoint) Post(program string) error {
	line, err := json.Marshal(frame{Type: frameScript, Script: program})
	if err != nil {
		return fmt.Errorf("process: encode frame: %w", err)
	}
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.ctx.Err() != nil {
		return ErrClosed
	}
	if e.writeErr != nil {
		return fmt.Errorf("process: write frame: %w", e.writeErr)
	}
	select {
	case e.programs <- line:
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *endpoint) writePrograms() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case line := <-e.programs:
			if _, err := e.stdin.Write(line); err != nil {
				e.mu.Lock()
				e.writeErr = err
				e.mu.Unlock()
				if e.ctx.Err() == nil {
					e.logger.Warn("engine stdin write failed", logging.Error(err))
				}
				return
			}
		}
	}
}

// Close ends stdin, stops the process and waits for it to exit. Closing stdin
// also releases a write blocked on an engine that stopped reading.
func (e *endpoint) Close() error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		_ = e.stdin.Close()
	}
	e.mu.Unlock()
	e.cancel()
	<-e.done
	return nil
}

func (e *endpoint) readFrames(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			e.emit(e.decode(line))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.logger.Debug("engine stdout closed", logging.Error(err))
			}
			return
		}
	}
}

func (e *endpoint) decode(line []byte) engine.Message {
	var f frame
	if err := json.Unmarshal(line, &f); err == nil {
		switch f.Type {
		case frameText:
			return engine.TextMessage(e.origin, f.Text)
		case frameBinary:
			return engine.BinaryMessage(e.origin, f.Data)
		}
	}
	return engine.TextMessage(e.origin+"/stdout", string(line))
}

func (e *endpoint) readChatter(r io.Reader, origin string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		e.emit(engine.TextMessage(origin, scanner.Text()))
	}
}

func (e *endpoint) emit(msg engine.Message) {
	select {
	case e.messages <- msg:
	case <-e.ctx.Done():
	}
}
