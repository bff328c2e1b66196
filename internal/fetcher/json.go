package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-trust/internal/model"
)

// maxJSONLine bounds a single JSONL line.
const maxJSONLine = 4 << 20

// emitFunc hands one decoded record downstream. It fails once the consumer's
// context is done.
type emitFunc func(rec model.Record) error

// streamRecords runs decode on its own goroutine and exposes its records as
// a channel. Both channels are closed when decode returns; a non-nil error
// is delivered on the error channel.
func streamRecords(ctx context.Context, decode func(ctx context.Context, emit emitFunc) error) (<-chan model.Record, <-chan error) {
	recCh := make(chan model.Record, 64)
	errCh := make(chan error, 1)

	emit := func(rec model.Record) error {
		select {
		case recCh <- rec:
			return nil
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "context cancelled")
		}
	}

	go func() {
		defer close(recCh)
		defer close(errCh)
		if err := decode(ctx, emit); err != nil {
			errCh <- err
		}
	}()

	return recCh, errCh
}

// StreamJSONRecords decodes either one JSON object or an array of objects.
// Empty input yields no records.
func StreamJSONRecords(ctx context.Context, r io.Reader) (<-chan model.Record, <-chan error) {
	return streamRecords(ctx, func(ctx context.Context, emit emitFunc) error {
		br := bufio.NewReader(r)
		first, err := firstNonSpace(br)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "json: read")
		}

		dec := json.NewDecoder(br)
		if first != '[' {
			var rec model.Record
			if err := dec.Decode(&rec); err != nil {
				return eris.Wrap(err, "json: decode object")
			}
			return eris.Wrap(emit(rec), "json")
		}

		if _, err := dec.Token(); err != nil {
			return eris.Wrap(err, "json: read array start")
		}
		for i := 0; dec.More(); i++ {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "json: context cancelled")
			}
			var rec model.Record
			if err := dec.Decode(&rec); err != nil {
				return eris.Wrapf(err, "json: decode element %d", i)
			}
			if err := emit(rec); err != nil {
				return eris.Wrap(err, "json")
			}
		}
		if _, err := dec.Token(); err != nil {
			return eris.Wrap(err, "json: read array end")
		}
		return nil
	})
}

// StreamJSONLRecords decodes one JSON object per line, skipping blank lines.
func StreamJSONLRecords(ctx context.Context, r io.Reader) (<-chan model.Record, <-chan error) {
	return streamRecords(ctx, func(ctx context.Context, emit emitFunc) error {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64<<10), maxJSONLine)

		for line := 1; sc.Scan(); line++ {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "jsonl: context cancelled")
			}
			text := bytes.TrimSpace(sc.Bytes())
			if len(text) == 0 {
				continue
			}
			var rec model.Record
			if err := json.Unmarshal(text, &rec); err != nil {
				return eris.Wrapf(err, "jsonl: decode line %d", line)
			}
			if err := emit(rec); err != nil {
				return eris.Wrap(err, "jsonl")
			}
		}
		return eris.Wrap(sc.Err(), "jsonl: scan")
	})
}

// firstNonSpace skips leading JSON whitespace and returns the next byte
// without consuming it.
func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
		default:
			return b[0], nil
		}
	}
}
