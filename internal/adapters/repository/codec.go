package repository

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/okian/seisnear/internal/domain/model"
)

// Values are laid out as an 8-byte big-endian UpdatedAt (unix nanos)
// followed by the gzip-compressed JSON report, so Purge can skip decoding.
const stampSize = 8

var gzipWriters = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

func encodeReport(r *model.SearchReport) ([]byte, error) {
	var buf bytes.Buffer
	var stamp [stampSize]byte
	binary.BigEndian.PutUint64(stamp[:], uint64(r.UpdatedAt.UnixNano()))
	buf.Write(stamp[:])

	gz := gzipWriters.Get().(*gzip.Writer)
	defer gzipWriters.Put(gz)
	gz.Reset(&buf)

	if err := json.NewEncoder(gz).Encode(r); err != nil {
		_ = gz.Close()
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress report: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeReport(value []byte) (*model.SearchReport, error) {
	if len(value) < stampSize {
		return nil, fmt.Errorf("decode report: short value (%d bytes)", len(value))
	}
	gz, err := gzip.NewReader(bytes.NewReader(value[stampSize:]))
	if err != nil {
		return nil, fmt.Errorf("decompress report: %w", err)
	}
	defer gz.Close()

	var r model.SearchReport
	if err := json.NewDecoder(gz).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

func stampOf(value []byte) (time.Time, bool) {
	if len(value) < stampSize {
		return time.Time{}, false
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(value[:stampSize]))), true
}
