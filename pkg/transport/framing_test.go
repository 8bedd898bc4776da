package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

// pipe is a framer stream where writes are read back in order.
type pipe struct {
	bytes.Buffer
}

func TestFrameRoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"single byte":  {0x42},
		"binary":       {0x00, 0xFF, 0x7F, 0x80},
		"register run": bytes.Repeat([]byte{0xA1}, 4*512),
		"max size":     bytes.Repeat([]byte("y"), DefaultMaxMessageSize),
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			p := new(pipe)
			f := NewFramer(p, 0)
			if err := f.WriteFrame(payload); err != nil {
				t.Fatalf("WriteFrame failed: %v", err)
			}
			if p.Len() != LengthPrefixSize+len(payload) {
				t.Errorf("frame size = %d, want %d", p.Len(), LengthPrefixSize+len(payload))
			}

			got, err := f.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame failed: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d", len(got), len(payload))
			}
		})
	}
}

func TestWriteFrameRejects(t *testing.T) {
	f := NewFramer(new(pipe), 8)

	if err := f.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("nil payload: got %v, want ErrMessageEmpty", err)
	}
	if err := f.WriteFrame(make([]byte, 9)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversized payload: got %v, want ErrMessageTooLarge", err)
	}
}

// rawFrame builds a stream whose prefix claims length bytes but carries body.
func rawFrame(length uint32, body []byte) *pipe {
	p := new(pipe)
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], length)
	p.Write(prefix[:])
	p.Write(body)
	return p
}

func TestReadFrameErrors(t *testing.T) {
	short := new(pipe)
	short.Write([]byte{0x00, 0x01})

	tests := []struct {
		name string
		in   *pipe
		max  uint32
		want error
	}{
		{"zero length", rawFrame(0, nil), 0, ErrMessageEmpty},
		{"over max", rawFrame(1000, make([]byte, 1000)), 100, ErrMessageTooLarge},
		{"short prefix", short, 0, ErrFrameTruncated},
		{"short payload", rawFrame(100, make([]byte, 50)), 0, ErrFrameTruncated},
		{"clean eof", new(pipe), 0, io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFramer(tt.in, tt.max).ReadFrame()
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFramerSequence(t *testing.T) {
	f := NewFramer(new(pipe), 0)

	for _, msg := range []string{"read", "write", "reply"} {
		if err := f.WriteFrame([]byte(msg)); err != nil {
			t.Fatalf("WriteFrame(%q) failed: %v", msg, err)
		}
	}
	for _, want := range []string{"read", "write", "reply"} {
		got, err := f.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if _, err := f.ReadFrame(); err != io.EOF {
		t.Errorf("expected EOF after last frame, got %v", err)
	}
}

func TestFramerDebugLogging(t *testing.T) {
	var out strings.Builder
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f := NewFramer(new(pipe), 0)
	f.SetLogger(logger)

	if err := f.WriteFrame([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ReadFrame(); err != nil {
		t.Fatal(err)
	}

	text := out.String()
	for _, want := range []string{"direction=out", "direction=in", "size=7"} {
		if !strings.Contains(text, want) {
			t.Errorf("log output missing %q:\n%s", want, text)
		}
	}

	f.SetLogger(nil)
	if err := f.WriteFrame([]byte("x")); err != nil {
		t.Fatal(err)
	}
}

func BenchmarkWriteFrame(b *testing.B) {
	p := new(pipe)
	f := NewFramer(p, 0)
	payload := bytes.Repeat([]byte("x"), 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Reset()
		f.WriteFrame(payload)
	}
}
