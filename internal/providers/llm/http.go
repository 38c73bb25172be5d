package llm

import (
	"bufio"
	"io"
	"os"
	"time"
)

func clientTimeout() time.Duration {
	if v := os.Getenv("LLM_HTTP_TIMEOUT_MS"); v != "" {
		if ms, err := time.ParseDuration(v + "ms"); err == nil {
			return ms
		}
	}
	return 45 * time.Second
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	if te, ok := err.(timeout); ok {
		return te.Timeout()
	}
	return false
}

func backoff(i int) time.Duration {
	return time.Duration(500*(1<<i)) * time.Millisecond
}

func retryableStatus(code int) bool {
	return code == 408 || code == 429 || (code >= 500 && code <= 599)
}

// newLineReader returns a scanner suitable for SSE lines.
func newLineReader(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 1024*1024)
	return sc
}
