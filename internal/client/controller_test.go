package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"water_pump_monitor/internal/display"
	"water_pump_monitor/internal/models"

	"github.com/gorilla/websocket"
)

// --- test doubles ---

// fakeDevice is a stand-in for the tank controller's /ws endpoint.
type fakeDevice struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	dials    atomic.Int32
	conns    chan *websocket.Conn
	received chan []byte
	readErrs chan error
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	d := &fakeDevice{
		conns:    make(chan *websocket.Conn, 8),
		received: make(chan []byte, 32),
		readErrs: make(chan error, 8),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := d.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		d.dials.Add(1)
		d.conns <- conn
		go func() {
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					d.readErrs <- err
					return
				}
				d.received <- msg
			}
		}()
	})
	d.srv = httptest.NewServer(mux)
	t.Cleanup(d.srv.Close)
	return d
}

func (d *fakeDevice) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-d.conns:
		t.Cleanup(func() { _ = c.Close() })
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("client never connected")
		return nil
	}
}

func (d *fakeDevice) nextCommand(t *testing.T) models.Command {
	t.Helper()
	select {
	case msg := <-d.received:
		var cmd models.Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			t.Fatalf("device got non-JSON %q: %v", msg, err)
		}
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatalf("no command received")
		return models.Command{}
	}
}

// memJournal records journal entries in memory.
type memJournal struct {
	mu     sync.Mutex
	events []models.ClientEvent
}

func (j *memJournal) Append(ctx context.Context, e models.ClientEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return nil
}

func (j *memJournal) types() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	for i, e := range j.events {
		out[i] = e.Type
	}
	return out
}

func (j *memJournal) count(typ string) int {
	n := 0
	for _, got := range j.types() {
		if got == typ {
			n++
		}
	}
	return n
}

// panicSurface blows up on every write.
type panicSurface struct{}

func (panicSurface) SetText(display.Region, string) { panic("surface detached") }
func (panicSurface) SetStyle(display.Region, display.Style) { panic("surface detached") }

// --- helpers ---

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startController(t *testing.T, pageURL string, board display.Surface, journal Journal, reload time.Duration) *Controller {
	t.Helper()
	c, err := New(Options{
		PageURL:     pageURL,
		ReloadDelay: reload,
		Surface:     board,
		Journal:     journal,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(c.Teardown)
	return c
}

func writeText(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("device write: %v", err)
	}
}

// --- tests ---

func TestWebSocketURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://192.168.1.20:8080", "ws://192.168.1.20:8080/ws", false},
		{"https://tank.example.com", "wss://tank.example.com/ws", false},
		{"http://tank.local/dashboard/index.html?x=1#top", "ws://tank.local/ws", false},
		{"ws://tank.local", "ws://tank.local/ws", false},
		{"ftp://tank.local", "", true},
		{"http://", "", true},
		{"tank.local:8080", "", true},
	}

	for _, tc := range cases {
		got, err := WebSocketURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("WebSocketURL(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("WebSocketURL(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("WebSocketURL(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCommandFor(t *testing.T) {
	t.Parallel()

	cases := map[string]models.Command{
		ControlAutomatic: {Type: "set_mode", Value: "automatic"},
		ControlManual:    {Type: "set_mode", Value: "manual"},
		ControlPumpOn:    {Type: "set_pump", Value: true},
		ControlPumpOff:   {Type: "set_pump", Value: false},
	}
	for control, want := range cases {
		got, err := CommandFor(control)
		if err != nil {
			t.Fatalf("CommandFor(%q): %v", control, err)
		}
		if got != want {
			t.Fatalf("CommandFor(%q)=%+v, want %+v", control, got, want)
		}
	}

	if _, err := CommandFor("selfDestructBtn"); !errors.Is(err, ErrUnknownControl) {
		t.Fatalf("expected ErrUnknownControl, got %v", err)
	}
}

func TestController_RendersTelemetry(t *testing.T) {
	dev := newFakeDevice(t)
	board := display.NewBoard()
	journal := &memJournal{}
	c := startController(t, dev.srv.URL, board, journal, time.Second)

	conn := dev.nextConn(t)
	eventually(t, "open state", func() bool { return c.State() == StateOpen })

	writeText(t, conn, `{"waterLevel": 64.25, "pumpStatus": "TRUE", "mode": "automatic", "alert": "Normal"}`)

	want := display.View{WaterLevel: "64.3%", PumpStatus: "ON", Mode: "AUTOMATIC", Alert: "Normal", AlertStyle: display.StylePositive}
	eventually(t, "rendered view", func() bool { return board.View() == want })

	writeText(t, conn, `{"waterLevel": "abc", "pumpStatus": "false", "alert": "Tank overflow"}`)

	want = display.View{WaterLevel: "--%", PumpStatus: "OFF", Mode: "", Alert: "Tank overflow", AlertStyle: display.StyleWarning}
	eventually(t, "second view", func() bool { return board.View() == want })

	if journal.count(models.EventOpen) != 1 {
		t.Fatalf("expected one OPEN entry, got %v", journal.types())
	}
}

func TestController_MalformedMessageDoesNotLatch(t *testing.T) {
	dev := newFakeDevice(t)
	board := display.NewBoard()
	journal := &memJournal{}
	startController(t, dev.srv.URL, board, journal, time.Second)

	conn := dev.nextConn(t)
	writeText(t, conn, "not json")
	eventually(t, "error view", func() bool { return board.View() == display.ErrorView() })

	writeText(t, conn, `{"waterLevel": 10, "pumpStatus": false, "mode": "manual"}`)
	want := display.View{WaterLevel: "10.0%", PumpStatus: "OFF", Mode: "MANUAL", Alert: "Normal", AlertStyle: display.StylePositive}
	eventually(t, "recovered view", func() bool { return board.View() == want })

	if journal.count(models.EventMessageError) != 1 {
		t.Fatalf("expected one MESSAGE_ERROR entry, got %v", journal.types())
	}
}

func TestController_BinaryFrameShowsErrorView(t *testing.T) {
	dev := newFakeDevice(t)
	board := display.NewBoard()
	journal := &memJournal{}
	startController(t, dev.srv.URL, board, journal, time.Second)

	conn := dev.nextConn(t)
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte(`{"waterLevel":50,"alert":"Normal"}`)); err != nil {
		t.Fatalf("device write: %v", err)
	}
	eventually(t, "error view", func() bool { return board.View() == display.ErrorView() })
	if journal.count(models.EventMessageError) != 1 {
		t.Fatalf("expected one MESSAGE_ERROR entry, got %v", journal.types())
	}

	// The same payload as text renders normally.
	writeText(t, conn, `{"waterLevel":50,"alert":"Normal"}`)
	want := display.View{WaterLevel: "50.0%", PumpStatus: "OFF", Mode: "", Alert: "Normal", AlertStyle: display.StylePositive}
	eventually(t, "text view", func() bool { return board.View() == want })
}

func TestController_InvalidUTF8FailsConnection(t *testing.T) {
	dev := newFakeDevice(t)
	board := display.NewBoard()
	journal := &memJournal{}
	c := startController(t, dev.srv.URL, board, journal, 50*time.Millisecond)

	conn := dev.nextConn(t)
	writeText(t, conn, "{\"alert\":\"a\xffb\"}")

	select {
	case err := <-dev.readErrs:
		if !websocket.IsCloseError(err, websocket.CloseInvalidFramePayloadData) {
			t.Fatalf("expected close 1007, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("connection was not failed")
	}

	dev.nextConn(t)
	eventually(t, "reload journaled", func() bool { return journal.count(models.EventReload) == 1 })
	if c.Reloads() != 1 {
		t.Fatalf("reloads=%d, want 1", c.Reloads())
	}

	if journal.count(models.EventMessageError) != 0 {
		t.Fatalf("invalid utf-8 is a transport failure, got %v", journal.types())
	}
	types := journal.types()
	if len(types) < 4 || types[1] != models.EventError || types[2] != models.EventClose || types[3] != models.EventReload {
		t.Fatalf("unexpected journal order: %v", types)
	}
	if board.View().Alert == "a\uFFFDb" {
		t.Fatalf("invalid text must not be rendered")
	}
}

func TestController_PanickingSurfaceIsContained(t *testing.T) {
	dev := newFakeDevice(t)
	journal := &memJournal{}
	c := startController(t, dev.srv.URL, panicSurface{}, journal, time.Second)

	conn := dev.nextConn(t)
	writeText(t, conn, `{"waterLevel": 1}`)
	eventually(t, "message error journaled", func() bool { return journal.count(models.EventMessageError) == 1 })

	// The loop is still alive and still sends commands.
	if err := c.Press(context.Background(), ControlPumpOn); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if got := dev.nextCommand(t); got.Type != models.CommandSetPump || got.Value != true {
		t.Fatalf("unexpected command %+v", got)
	}
}

func TestController_PressSendsCommandsWithoutTouchingDisplay(t *testing.T) {
	dev := newFakeDevice(t)
	board := display.NewBoard()
	journal := &memJournal{}
	c := startController(t, dev.srv.URL, board, journal, time.Second)

	dev.nextConn(t)
	eventually(t, "open state", func() bool { return c.State() == StateOpen })
	before := board.View()

	want := []models.Command{
		{Type: "set_mode", Value: "automatic"},
		{Type: "set_mode", Value: "manual"},
		{Type: "set_pump", Value: true},
		{Type: "set_pump", Value: false},
	}
	for i, control := range Controls() {
		if err := c.Press(context.Background(), control); err != nil {
			t.Fatalf("Press(%s): %v", control, err)
		}
		if got := dev.nextCommand(t); got != want[i] {
			t.Fatalf("Press(%s) sent %+v, want %+v", control, got, want[i])
		}
	}

	select {
	case extra := <-dev.received:
		t.Fatalf("unexpected extra frame %q", extra)
	case <-time.After(50 * time.Millisecond):
	}

	if board.View() != before {
		t.Fatalf("controls must not change the display: %+v -> %+v", before, board.View())
	}
	if journal.count(models.EventCommand) != 4 {
		t.Fatalf("expected 4 COMMAND entries, got %v", journal.types())
	}
	if err := c.Press(context.Background(), "bogus"); !errors.Is(err, ErrUnknownControl) {
		t.Fatalf("expected ErrUnknownControl, got %v", err)
	}
}

func TestController_CloseTriggersExactlyOneReload(t *testing.T) {
	dev := newFakeDevice(t)
	board := display.NewBoard()
	journal := &memJournal{}
	c := startController(t, dev.srv.URL, board, journal, 100*time.Millisecond)

	conn := dev.nextConn(t)
	writeText(t, conn, `{"waterLevel": 55, "mode": "manual"}`)
	eventually(t, "telemetry", func() bool { return board.View().Mode == "MANUAL" })

	// Server-initiated close.
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart"))
	_ = conn.Close()

	eventually(t, "closed state", func() bool { return c.State() == StateClosed })
	if c.Reloads() != 0 {
		t.Fatalf("reload must wait for the delay")
	}

	dev.nextConn(t)
	eventually(t, "reopened", func() bool { return c.State() == StateOpen })

	if c.Reloads() != 1 {
		t.Fatalf("expected exactly one reload, got %d", c.Reloads())
	}
	if board.View() != display.InitialView() {
		t.Fatalf("reload should reset the display, got %+v", board.View())
	}

	// No second reload while the new connection stays up.
	time.Sleep(300 * time.Millisecond)
	if c.Reloads() != 1 || dev.dials.Load() != 2 {
		t.Fatalf("reloads=%d dials=%d, want 1 and 2", c.Reloads(), dev.dials.Load())
	}
	if journal.count(models.EventClose) != 1 || journal.count(models.EventReload) != 1 {
		t.Fatalf("unexpected journal: %v", journal.types())
	}
}

func TestController_UnreachableServerKeepsReloading(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	board := display.NewBoard()
	journal := &memJournal{}
	c := startController(t, url, board, journal, 30*time.Millisecond)

	eventually(t, "several reloads", func() bool { return c.Reloads() >= 3 })

	types := journal.types()
	if len(types) < 3 || types[0] != models.EventError || types[1] != models.EventClose || types[2] != models.EventReload {
		t.Fatalf("unexpected journal order: %v", types)
	}
	if journal.count(models.EventOpen) != 0 {
		t.Fatalf("nothing should have opened: %v", types)
	}
}

func TestController_PressWhileDisconnectedIsDropped(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	journal := &memJournal{}
	c := startController(t, url, display.NewBoard(), journal, time.Hour)
	eventually(t, "closed state", func() bool { return c.State() == StateClosed })

	if err := c.Press(context.Background(), ControlPumpOff); err != nil {
		t.Fatalf("Press should be best effort, got %v", err)
	}
	// Give the loop a moment to handle the command.
	time.Sleep(50 * time.Millisecond)
	if journal.count(models.EventCommand) != 0 {
		t.Fatalf("no command should have been sent: %v", journal.types())
	}
}

func TestController_TeardownClosesConnection(t *testing.T) {
	dev := newFakeDevice(t)
	c, err := New(Options{PageURL: dev.srv.URL, Surface: display.NewBoard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Press(context.Background(), ControlPumpOn); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Press before Init: expected ErrNotRunning, got %v", err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := c.Init(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Init: expected ErrAlreadyRunning, got %v", err)
	}

	dev.nextConn(t)
	eventually(t, "open state", func() bool { return c.State() == StateOpen })

	c.Teardown()
	c.Teardown() // idempotent

	select {
	case err := <-dev.readErrs:
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Fatalf("expected a normal close frame, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("device never saw the connection end")
	}

	if err := c.Press(context.Background(), ControlPumpOn); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Press after Teardown: expected ErrNotRunning, got %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("state after Teardown = %s", c.State())
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{PageURL: "gopher://x", Surface: display.NewBoard()}); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
	if _, err := New(Options{PageURL: "http://x"}); err == nil {
		t.Fatalf("expected error without a surface")
	}
	c, err := New(Options{PageURL: "https://x:8443", Surface: display.NewBoard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.URL() != "wss://x:8443/ws" {
		t.Fatalf("URL()=%q", c.URL())
	}
	if c.State() != StateClosed {
		t.Fatalf("idle controller should report closed, got %s", c.State())
	}
}
