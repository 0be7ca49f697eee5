package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Tailer follows an append-only NDJSON event log, delivering complete
// lines as they land. Polling is used rather than fsnotify for the file
// itself: appenders on some platforms do not generate reliable write
// notifications, and a short poll interval is cheap.
type Tailer struct {
	path     string
	offset   int64
	interval time.Duration
}

// NewTailer creates a tailer starting at offset (0 reads from the
// beginning). interval defaults to 500ms.
func NewTailer(path string, offset int64, interval time.Duration) *Tailer {
	if interval == 0 {
		interval = 500 * time.Millisecond
	}
	return &Tailer{path: path, offset: offset, interval: interval}
}

// Offset returns the current read position, for cursor persistence.
func (t *Tailer) Offset() int64 { return t.offset }

// Tail delivers complete appended lines on the lines channel until ctx
// is cancelled, returning the final offset. A log that does not exist
// yet is waited for; a truncated log resets the cursor to the start.
func (t *Tailer) Tail(ctx context.Context, lines chan<- []byte) (int64, error) {
	for {
		if _, err := os.Stat(t.path); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return t.offset, nil
		case <-time.After(t.interval):
		}
	}

	f, err := os.Open(t.path)
	if err != nil {
		return t.offset, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() < t.offset {
		t.offset = 0
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return t.offset, fmt.Errorf("seek %s: %w", t.path, err)
	}

	reader := bufio.NewReader(f)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	// pending holds a partial line consumed before its newline arrived.
	var pending []byte

	for {
		for {
			raw, err := reader.ReadBytes('\n')
			if err == io.EOF {
				pending = append(pending, raw...)
				break
			}
			if err != nil {
				return t.offset, fmt.Errorf("read %s: %w", t.path, err)
			}
			if len(pending) > 0 {
				raw = append(pending, raw...)
				pending = nil
			}

			t.offset += int64(len(raw))
			line := trimLine(raw[:len(raw)-1])
			if len(line) == 0 {
				continue
			}
			out := make([]byte, len(line))
			copy(out, line)

			select {
			case lines <- out:
			case <-ctx.Done():
				return t.offset, nil
			}
		}

		select {
		case <-ctx.Done():
			return t.offset, nil
		case <-ticker.C:
			info, err := os.Stat(t.path)
			if err != nil {
				continue
			}
			if info.Size() < t.offset {
				// Truncated underneath us: reopen from the start.
				t.offset = 0
				pending = nil
				f.Close()
				f, err = os.Open(t.path)
				if err != nil {
					return t.offset, fmt.Errorf("reopen %s: %w", t.path, err)
				}
				reader = bufio.NewReader(f)
			}
		}
	}
}
