package runner

import "testing"

func frame(streamType byte, payload string) []byte {
	size := len(payload)
	header := []byte{streamType, 0, 0, 0,
		byte(size >> 24), byte(size >> 16), byte(size >> 8), byte(size)}
	return append(header, payload...)
}

func TestDemuxOutput(t *testing.T) {
	t.Run("stdout only", func(t *testing.T) {
		data := frame(1, "hello\n")
		stdout, stderr := demuxOutput(data)
		if stdout != "hello\n" {
			t.Errorf("stdout = %q, want %q", stdout, "hello\n")
		}
		if stderr != "" {
			t.Errorf("stderr = %q, want empty", stderr)
		}
	})

	t.Run("interleaved streams", func(t *testing.T) {
		data := append(frame(1, "out1"), frame(2, "err1")...)
		data = append(data, frame(1, "out2")...)
		stdout, stderr := demuxOutput(data)
		if stdout != "out1out2" {
			t.Errorf("stdout = %q, want %q", stdout, "out1out2")
		}
		if stderr != "err1" {
			t.Errorf("stderr = %q, want %q", stderr, "err1")
		}
	})

	t.Run("traceback on stderr", func(t *testing.T) {
		trace := "Traceback (most recent call last):\nNameError: name 'x' is not defined\n"
		stdout, stderr := demuxOutput(frame(2, trace))
		if stdout != "" {
			t.Errorf("stdout = %q, want empty", stdout)
		}
		if stderr != trace {
			t.Errorf("stderr = %q, want %q", stderr, trace)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		stdout, stderr := demuxOutput(nil)
		if stdout != "" || stderr != "" {
			t.Errorf("got (%q, %q), want empty", stdout, stderr)
		}
	})

	t.Run("truncated frame", func(t *testing.T) {
		data := frame(1, "abcdef")
		// Drop the last two payload bytes
		stdout, _ := demuxOutput(data[:len(data)-2])
		if stdout != "abcd" {
			t.Errorf("stdout = %q, want %q", stdout, "abcd")
		}
	})
}
