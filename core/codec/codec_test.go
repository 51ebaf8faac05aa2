package codec

import (
	"strconv"
	"sync"
	"testing"
)

type logCall struct {
	level string
	msg   string
}

type loggerMock struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *loggerMock) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, msg: msg})
}

func (l *loggerMock) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *loggerMock) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *loggerMock) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *loggerMock) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *loggerMock) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

func newCodec(t *testing.T, secret string) (Codec, *loggerMock) {
	logger := new(loggerMock)
	c, err := New(secret, logger)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c, logger
}

func TestRoundTrip(t *testing.T) {
	c, logger := newCodec(t, "s3cr3t")

	for i := 0; i <= 100; i++ {
		plain := strconv.Itoa(i)
		sealed, err := c.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q) error = %v", plain, err)
		}
		if sealed == plain {
			t.Errorf("Encrypt(%q) returned the plain text", plain)
		}
		if got := c.Decrypt(sealed); got != plain {
			t.Errorf("Decrypt(Encrypt(%q)) = %q", plain, got)
		}
	}
	if len(logger.calls) != 0 {
		t.Errorf("unexpected log calls: %v", logger.calls)
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	c, _ := newCodec(t, "s3cr3t")

	a, _ := c.Encrypt("90")
	b, _ := c.Encrypt("90")
	if a == b {
		t.Errorf("Encrypt() produced the same ciphertext twice: %q", a)
	}
}

func TestEmptyValue(t *testing.T) {
	c, _ := newCodec(t, "s3cr3t")

	sealed, err := c.Encrypt("")
	if err != nil || sealed != "" {
		t.Errorf("Encrypt(\"\") = %q, %v; want \"\", nil", sealed, err)
	}
	if got := c.Decrypt(""); got != "" {
		t.Errorf("Decrypt(\"\") = %q", got)
	}
}

func TestDecryptFailures(t *testing.T) {
	other, _ := newCodec(t, "another secret")
	foreign, _ := other.Encrypt("88")

	tests := []struct {
		name   string
		cipher string
	}{
		{name: "not base64", cipher: "%%%not-base64%%%"},
		{name: "too short", cipher: "AAAA"},
		{name: "foreign key", cipher: foreign},
		{name: "plain number", cipher: "85"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, logger := newCodec(t, "s3cr3t")
			if got := c.Decrypt(tt.cipher); got != "" {
				t.Errorf("Decrypt(%q) = %q; want \"\"", tt.cipher, got)
			}
			if len(logger.calls) != 1 || logger.calls[0].level != "warn" {
				t.Errorf("Decrypt(%q) log calls = %v; want one warning", tt.cipher, logger.calls)
			}
		})
	}
}
