// Package client keeps the live connection to the tank controller. It renders
// every inbound telemetry message onto a display surface and forwards control
// presses as commands.
//
// All connection, message, control and reload handling runs on a single event
// loop goroutine, one event at a time. A closed connection is never repaired
// in place: after a fixed delay the whole session is reloaded, which resets
// the display and dials again.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"water_pump_monitor/internal/display"
	"water_pump_monitor/internal/logger"
	"water_pump_monitor/internal/models"
	"water_pump_monitor/internal/telemetry"

	"github.com/gorilla/websocket"
)

const (
	DefaultReloadDelay      = 3 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	journalTimeout          = 2 * time.Second
	closeGracePeriod        = time.Second
	eventBuffer             = 64
	maxLoggedPayload        = 256
)

// Journal records diagnostics. repository.EventRepo satisfies it.
type Journal interface {
	Append(ctx context.Context, e models.ClientEvent) error
}

// Options configures a Controller.
type Options struct {
	PageURL          string // http(s)://host[:port] of the controller
	ReloadDelay      time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Surface          display.Surface
	Labels           display.Labels
	Journal          Journal        // optional
	Log              *logger.Logger // optional
}

type eventKind int

const (
	evOpen eventKind = iota
	evMessage
	evError
	evClose
	evCommand
	evReload
)

type event struct {
	kind    eventKind
	gen     uint64
	conn    *websocket.Conn
	msgType int
	data    []byte
	err     error
	cmd     models.Command
}

// Controller owns the connection and its event loop. Create it with New,
// start it with Init and stop it with Teardown.
type Controller struct {
	wsURL        string
	reloadDelay  time.Duration
	writeTimeout time.Duration
	dialer       *websocket.Dialer
	surface      display.Surface
	labels       display.Labels
	journal      Journal
	log          *logger.Logger

	events  chan event
	state   atomic.Int32
	reloads atomic.Int64

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	timers  []*time.Timer

	// Owned by the event loop.
	conn *websocket.Conn
	gen  uint64
}

// New validates opts and builds an idle Controller.
func New(opts Options) (*Controller, error) {
	wsURL, err := WebSocketURL(opts.PageURL)
	if err != nil {
		return nil, fmt.Errorf("derive websocket url: %w", err)
	}
	if opts.Surface == nil {
		return nil, fmt.Errorf("a display surface is required")
	}
	if opts.ReloadDelay <= 0 {
		opts.ReloadDelay = DefaultReloadDelay
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Labels == (display.Labels{}) {
		opts.Labels = display.DefaultLabels()
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	c := &Controller{
		wsURL:        wsURL,
		reloadDelay:  opts.ReloadDelay,
		writeTimeout: opts.WriteTimeout,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		surface: opts.Surface,
		labels:  opts.Labels,
		journal: opts.Journal,
		log:     opts.Log,
		events:  make(chan event, eventBuffer),
	}
	c.state.Store(int32(StateClosed))
	return c, nil
}

// URL is the derived WebSocket endpoint.
func (c *Controller) URL() string { return c.wsURL }

// State reports the current connection state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Reloads counts the reloads performed so far.
func (c *Controller) Reloads() int64 { return c.reloads.Load() }

// Init starts the event loop and the first session.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	c.running = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(c.ctx, c.done)
	return nil
}

// Teardown stops the event loop, closes the connection and drops any pending
// reload. It is meant for process shutdown.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel, done := c.cancel, c.done
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
	c.mu.Unlock()

	cancel()
	<-done
}

// Press handles one of the four dashboard controls. The command is queued on
// the event loop and written if the connection is open at that point;
// otherwise it is dropped.
func (c *Controller) Press(ctx context.Context, control string) error {
	cmd, err := CommandFor(control)
	if err != nil {
		return err
	}

	c.mu.Lock()
	running, loopCtx := c.running, c.ctx
	c.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	select {
	case c.events <- event{kind: evCommand, cmd: cmd}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-loopCtx.Done():
		return ErrNotRunning
	}
}

func (c *Controller) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	c.load(ctx)
	for {
		select {
		case <-ctx.Done():
			c.shutdownConn()
			c.state.Store(int32(StateClosed))
			return
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// load starts a fresh session: placeholders on screen and a new dial.
func (c *Controller) load(ctx context.Context) {
	c.gen++
	c.conn = nil
	c.state.Store(int32(StateConnecting))
	if err := c.render(display.InitialView()); err != nil {
		c.log.Warnw("display_reset_failed", "err", err)
	}
	c.log.Infow("ws_connecting", "url", c.wsURL)
	go c.connect(ctx, c.gen)
}

func (c *Controller) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evCommand:
		c.send(ev.cmd)
		return
	case evReload:
		c.reload(ctx)
		return
	}

	// Anything below belongs to a connection; ignore leftovers from an
	// earlier session.
	if ev.gen != c.gen {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}

	switch ev.kind {
	case evOpen:
		c.conn = ev.conn
		c.state.Store(int32(StateOpen))
		c.log.Infow("ws_open", "url", c.wsURL)
		c.record(models.EventOpen, "connected to "+c.wsURL, nil)
	case evMessage:
		c.dispatch(ev.msgType, ev.data)
	case evError:
		c.log.Warnw("ws_error", "err", ev.err)
		c.record(models.EventError, "transport error", map[string]any{"err": errString(ev.err)})
	case evClose:
		c.onClose(ev.err)
	}
}

func (c *Controller) onClose(cause error) {
	if c.State() == StateClosed {
		return
	}
	c.state.Store(int32(StateClosed))
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	c.log.Infow("ws_closed", "err", cause, "reload_in", c.reloadDelay)
	c.record(models.EventClose, "connection closed", map[string]any{
		"err":       errString(cause),
		"reload_ms": c.reloadDelay.Milliseconds(),
	})
	c.scheduleReload()
}

// scheduleReload arms a one-shot timer. It is not cancelled by anything but
// Teardown.
func (c *Controller) scheduleReload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(c.reloadDelay, func() {
		c.mu.Lock()
		c.forgetTimerLocked(t)
		c.mu.Unlock()
		c.post(event{kind: evReload})
	})
	c.timers = append(c.timers, t)
}

func (c *Controller) forgetTimerLocked(t *time.Timer) {
	for i, x := range c.timers {
		if x == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

func (c *Controller) reload(ctx context.Context) {
	n := c.reloads.Add(1)
	c.log.Infow("reloading", "reload", n)
	c.record(models.EventReload, "session reloaded", map[string]any{"reload": n})
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.load(ctx)
}

// dispatch renders one inbound message. A bad message shows the error view;
// the next message is handled normally. Telemetry only arrives as text, so a
// binary frame counts as a bad message.
func (c *Controller) dispatch(msgType int, data []byte) {
	view, err := c.project(msgType, data)
	if err == nil {
		err = c.render(view)
	}
	if err == nil {
		return
	}

	c.log.Warnw("ws_message_invalid", "err", err, "payload", truncate(data))
	c.record(models.EventMessageError, "could not process telemetry", map[string]any{
		"err":     err.Error(),
		"payload": truncate(data),
	})
	if rerr := c.render(display.ErrorView()); rerr != nil {
		c.log.Errorw("display_error_view_failed", "err", rerr)
	}
}

func (c *Controller) project(msgType int, data []byte) (display.View, error) {
	if msgType != websocket.TextMessage {
		return display.View{}, fmt.Errorf("%w: frame type %d is not text", telemetry.ErrMalformedMessage, msgType)
	}
	snap, err := telemetry.Decode(data)
	if err != nil {
		return display.View{}, err
	}
	return display.Project(snap, c.labels), nil
}

func (c *Controller) render(v display.View) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	display.Render(c.surface, v)
	return nil
}

// send writes cmd if the connection is open. Nothing is queued or retried.
func (c *Controller) send(cmd models.Command) {
	if c.State() != StateOpen || c.conn == nil {
		c.log.Warnw("command_dropped", "type", cmd.Type, "value", cmd.Value, "state", c.State().String())
		return
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteJSON(cmd); err != nil {
		// The reader sees the broken connection and reports the close.
		c.log.Warnw("ws_write_failed", "err", err, "type", cmd.Type)
		c.record(models.EventError, "command write failed", map[string]any{"err": err.Error(), "command": cmd})
		return
	}
	c.log.Infow("command_sent", "type", cmd.Type, "value", cmd.Value)
	c.record(models.EventCommand, "sent "+cmd.Type, cmd)
}

func (c *Controller) shutdownConn() {
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(closeGracePeriod),
	)
	_ = c.conn.Close()
	c.conn = nil
}

// connect dials and then pumps inbound frames into the event loop until the
// connection ends. It runs on its own goroutine per session.
func (c *Controller) connect(ctx context.Context, gen uint64) {
	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		c.post(event{kind: evError, gen: gen, err: err})
		c.post(event{kind: evClose, gen: gen, err: err})
		return
	}
	if !c.post(event{kind: evOpen, gen: gen, conn: conn}) {
		_ = conn.Close()
		return
	}

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.post(event{kind: evError, gen: gen, err: err})
			}
			c.post(event{kind: evClose, gen: gen, err: err})
			return
		}
		if msgType == websocket.TextMessage && !utf8.Valid(msg) {
			// A text frame that is not UTF-8 fails the connection (1007).
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInvalidFramePayloadData, "invalid utf-8"),
				time.Now().Add(closeGracePeriod),
			)
			_ = conn.Close()
			c.post(event{kind: evError, gen: gen, err: ErrInvalidUTF8})
			c.post(event{kind: evClose, gen: gen, err: ErrInvalidUTF8})
			return
		}
		if !c.post(event{kind: evMessage, gen: gen, msgType: msgType, data: msg}) {
			return
		}
	}
}

// post hands ev to the event loop. It reports false once the loop is gone.
func (c *Controller) post(ev event) bool {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		return false
	}
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Controller) record(typ, description string, meta any) {
	if c.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := c.journal.Append(ctx, models.ClientEvent{
		Type:        typ,
		Description: description,
		Metadata:    meta,
	}); err != nil {
		c.log.Errorw("journal_append_failed", "err", err, "type", typ)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func truncate(b []byte) string {
	if len(b) <= maxLoggedPayload {
		return string(b)
	}
	return string(b[:maxLoggedPayload]) + "..."
}
