package bridge

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeWireShape(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"ready", Ready(), `{"type":"ready"}`},
		{"log with level", Log("boom", LevelError), `{"level":"error","msg":"boom","type":"log"}`},
		{"log without level", Message{Type: TypeLog, Msg: "hi"}, `{"msg":"hi","type":"log"}`},
		{"runCode", RunCode("export default {}"), `{"code":"export default {}","type":"runCode"}`},
		{"vkey up keeps down", VKey("z", false), `{"down":false,"key":"z","type":"vkey"}`},
		{"buttons empty", Buttons(nil), `{"names":[],"type":"buttons"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.msg)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if string(data) != tc.want {
				t.Errorf("Encode() = %s, expected %s", data, tc.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(`{"type":"vkey","key":"ArrowLeft","down":true}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if m.Type != TypeVKey || m.Key != "ArrowLeft" || !m.Down {
		t.Errorf("Decode() = %+v", m)
	}

	_, err = Decode([]byte(`{"type":"navigate","url":"x"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("Decode(unknown) error = %v, expected ErrUnknownType", err)
	}

	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("Decode(garbage) should fail")
	}
}

func TestEffectiveLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  Level
	}{
		{"", LevelInfo},
		{LevelInfo, LevelInfo},
		{LevelWarn, LevelWarn},
		{LevelError, LevelError},
		{"fatal", LevelInfo},
	}
	for _, tc := range tests {
		m := Message{Type: TypeLog, Level: tc.level}
		if got := m.EffectiveLevel(); got != tc.want {
			t.Errorf("EffectiveLevel(%q) = %q, expected %q", tc.level, got, tc.want)
		}
	}
}

func TestStringElidesCode(t *testing.T) {
	s := RunCode(strings.Repeat("x", 500)).String()
	if strings.Contains(s, "xxx") {
		t.Errorf("String() should not include code body, got %q", s)
	}
	if s != "runCode{500 bytes}" {
		t.Errorf("String() = %q", s)
	}
}
