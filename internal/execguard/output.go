package execguard

import (
	"bytes"
	"io"
	"regexp"
	"sync"
)

// secretPatterns match known credential formats in captured output. These
// detect actual secret values, not variable names.
var secretPatterns = []*regexp.Regexp{
	// npm tokens: npm_...
	regexp.MustCompile(`npm_[a-zA-Z0-9]{30,}`),
	// GitHub tokens: ghp_/gho_/ghs_/ghr_...
	regexp.MustCompile(`gh[posr]_[a-zA-Z0-9]{30,}`),
	// Generic long hex tokens that look like API keys.
	regexp.MustCompile(`\b[a-f0-9]{64,}\b`),
	// Bearer tokens.
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.]{20,}`),
	// key=value pairs where the key suggests a secret.
	regexp.MustCompile(`(?i)(?:password|passwd|secret|token|api_?key|auth)\s*[=:]\s*\S+`),
}

const redactPlaceholder = "[REDACTED]"

// outputBuffer accumulates stdout and stderr under a shared byte cap.
// Once the combined total exceeds the cap, the exceeded channel is closed
// and further writes are dropped.
type outputBuffer struct {
	mu       sync.Mutex
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	limit    int64
	total    int64
	exceeded chan struct{}
	closed   bool
}

func newOutputBuffer(limit int64) *outputBuffer {
	return &outputBuffer{limit: limit, exceeded: make(chan struct{})}
}

type streamWriter struct {
	buf    *outputBuffer
	stream *bytes.Buffer
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.buf.mu.Lock()
	defer w.buf.mu.Unlock()

	w.buf.total += int64(len(p))
	if w.buf.total > w.buf.limit {
		if !w.buf.closed {
			w.buf.closed = true
			close(w.buf.exceeded)
		}
		// Report success so the child's pipe does not break before the
		// executor kills it; the overflow itself is simply dropped.
		return len(p), nil
	}
	return w.stream.Write(p)
}

func (b *outputBuffer) stdoutWriter() io.Writer { return &streamWriter{buf: b, stream: &b.stdout} }
func (b *outputBuffer) stderrWriter() io.Writer { return &streamWriter{buf: b, stream: &b.stderr} }

// redactedOutput returns both streams with credential-shaped values
// scrubbed, plus the number of values found.
func (b *outputBuffer) redactedOutput() (stdout, stderr string, redacted int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n1, n2 int
	stdout, n1 = scrubSecrets(b.stdout.String())
	stderr, n2 = scrubSecrets(b.stderr.String())
	return stdout, stderr, n1 + n2
}

// scrubSecrets replaces credential matches in s and returns the count.
func scrubSecrets(s string) (string, int) {
	count := 0
	for _, re := range secretPatterns {
		matches := re.FindAllString(s, -1)
		if len(matches) > 0 {
			count += len(matches)
			s = re.ReplaceAllString(s, redactPlaceholder)
		}
	}
	return s, count
}
