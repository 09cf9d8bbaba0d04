package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/sentinelsec/sentinel/pkg/httputil"
)

// LogSink writes events to the process log. Always configured.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Emit(ev Event) {
	log.Printf("[INFO] stage=%s execution_id=%s %s", ev.Stage, ev.ExecutionID, ev.Summary)
}

// FileSink appends events to a JSONL audit file.
type FileSink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewFileSink opens (or creates) the audit file at path.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("audit file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &FileSink{path: path, file: f, writer: bufio.NewWriter(f)}, nil
}

func (s *FileSink) Name() string { return "file:" + s.path }

func (s *FileSink) Emit(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[WARN] telemetry file sink: encode: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writer.Write(append(data, '\n')); err != nil {
		log.Printf("[WARN] telemetry file sink: write: %v", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		log.Printf("[WARN] telemetry file sink: flush: %v", err)
	}
}

// Close flushes and closes the audit file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.writer.Flush()
	return s.file.Close()
}

// WebhookSink POSTs each event to an HTTP endpoint, fire-and-forget.
// Delivery goroutines are bounded by a semaphore; events beyond the
// budget are dropped and counted rather than queued without limit.
type WebhookSink struct {
	url    string
	client *http.Client
	sem    *httputil.Semaphore
}

// NewWebhookSink creates a webhook sink with a bounded delivery pool.
func NewWebhookSink(url string, maxInFlight int) (*WebhookSink, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url is empty")
	}
	if maxInFlight <= 0 {
		maxInFlight = 10
	}
	return &WebhookSink{
		url:    url,
		client: httputil.Client(httputil.TierFast),
		sem:    httputil.NewSemaphore(maxInFlight),
	}, nil
}

func (s *WebhookSink) Name() string { return "webhook:" + s.url }

func (s *WebhookSink) Emit(ev Event) {
	if !s.sem.TryAcquire() {
		if s.sem.DroppedCount()%100 == 1 {
			log.Printf("[WARN] telemetry webhook sink: at capacity, %d events dropped", s.sem.DroppedCount())
		}
		return
	}
	go func() {
		defer s.sem.Release()
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Printf("[WARN] telemetry webhook sink: encode: %v", err)
			return
		}
		resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(payload))
		if err != nil {
			log.Printf("[WARN] telemetry webhook sink: post: %v", err)
			return
		}
		defer httputil.DrainAndClose(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			log.Printf("[WARN] telemetry webhook sink: status %d", resp.StatusCode)
		}
	}()
}

// Dropped reports how many events the webhook sink has discarded.
func (s *WebhookSink) Dropped() int64 { return s.sem.DroppedCount() }
