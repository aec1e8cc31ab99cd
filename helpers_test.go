package namedmsg

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-metrics"
)

// countingSink only keeps track of counters, by their dotted key.
type countingSink struct {
	metrics.BlackholeSink

	lk       sync.Mutex
	counters map[string]float32
}

func newCountingSink() *countingSink {
	return &countingSink{counters: make(map[string]float32)}
}

func (s *countingSink) IncrCounterWithLabels(key []string, val float32, _ []metrics.Label) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.counters[strings.Join(key, ".")] += val
}

func (s *countingSink) count(key []string) float32 {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.counters[strings.Join(key, ".")]
}

func testLogHandler(emitter string) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}).WithAttrs([]slog.Attr{
		{Key: "emitter", Value: slog.StringValue(emitter)},
	})
}
