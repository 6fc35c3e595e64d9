package event

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/loykin/fpsmon/internal/fps"
)

func TestMarshalEnvelope(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{StartedEvent("game.exe"), `{"event":"fps-started","payload":"game.exe"}`},
		{StoppedEvent("game.exe"), `{"event":"fps-stopped","payload":"game.exe"}`},
		{ErrorEvent("nope"), `{"event":"fps-error","payload":"nope"}`},
	}
	for _, c := range cases {
		b, err := json.Marshal(c.ev)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != c.want {
			t.Fatalf("expected %s, got %s", c.want, b)
		}
	}

	b, _ := json.Marshal(UpdateEvent(fps.Snapshot{FPS: 60, ProcessName: "g"}))
	if !strings.Contains(string(b), `"event":"fps-update"`) || !strings.Contains(string(b), `"fps":60`) {
		t.Fatalf("unexpected update encoding: %s", b)
	}
	b, _ = json.Marshal(SessionEvent(fps.Session{TotalFrames: 7}))
	if !strings.Contains(string(b), `"total_frames":7`) {
		t.Fatalf("unexpected session encoding: %s", b)
	}
}

func TestMultiSkipsNilAndKeepsOrder(t *testing.T) {
	var got []string
	a := EmitterFunc(func(e Event) { got = append(got, "a:"+string(e.Type)) })
	b := EmitterFunc(func(e Event) { got = append(got, "b:"+string(e.Type)) })
	m := Multi(a, nil, b)
	m.Emit(StartedEvent("x"))
	if strings.Join(got, ",") != "a:fps-started,b:fps-started" {
		t.Fatalf("unexpected fan-out: %v", got)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	sink.Emit(UpdateEvent(fps.Snapshot{FPS: 144, ProcessName: "g"}))
	sink.Emit(ErrorEvent("binary missing"))
	out := buf.String()
	if !strings.Contains(out, "fps=144") || !strings.Contains(out, "level=ERROR") {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Emit(StartedEvent("g"))
	r.Emit(StoppedEvent("g"))
	<-r.Notify()
	types := r.Types()
	if len(types) != 2 || types[0] != Started || types[1] != Stopped {
		t.Fatalf("unexpected types: %v", types)
	}
}
