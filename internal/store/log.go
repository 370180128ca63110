package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"wasmdb/internal/domain"
)

// appendLog is the durable backing file for the row store. Each record is
// framed as u32 CRC32 checksum + u32 payload length + payload. A torn tail
// record (partial write from a crash) is discarded on replay; a checksum
// mismatch anywhere else is corruption and fails the open.
type appendLog struct {
	f *os.File
}

func openLog(path string) (*appendLog, []domain.Row, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //nolint:gosec // path comes from config
	if err != nil {
		return nil, nil, fmt.Errorf("open row log %s: %w", path, err)
	}

	rows, goodOffset, err := replay(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("replay row log %s: %w", path, err)
	}

	// Drop a torn tail so the next append starts at a clean frame.
	if err := f.Truncate(goodOffset); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("truncate row log %s: %w", path, err)
	}
	if _, err := f.Seek(goodOffset, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("seek row log %s: %w", path, err)
	}

	return &appendLog{f: f}, rows, nil
}

func replay(r io.Reader) (rows []domain.Row, goodOffset int64, err error) {
	var header [8]byte
	for {
		n, err := io.ReadFull(r, header[:])
		if errors.Is(err, io.EOF) {
			return rows, goodOffset, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// Torn header from an interrupted append.
			return rows, goodOffset, nil
		}
		if err != nil {
			return nil, 0, err
		}

		sum := binary.LittleEndian.Uint32(header[:4])
		size := binary.LittleEndian.Uint32(header[4:])
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return rows, goodOffset, nil
			}
			return nil, 0, err
		}

		if crc32.ChecksumIEEE(payload) != sum {
			return nil, 0, fmt.Errorf("checksum mismatch at offset %d", goodOffset)
		}
		row, err := decodeRow(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("decode record at offset %d: %w", goodOffset, err)
		}
		rows = append(rows, row)
		goodOffset += int64(n) + int64(size)
	}
}

// append writes one framed record and syncs it to disk before returning, so
// a row is never visible to scans without being durable.
func (l *appendLog) append(row domain.Row) error {
	payload := encodeRow(row)

	buf := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(buf[:4], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)

	if _, err := l.f.Write(buf); err != nil {
		return fmt.Errorf("append row log: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync row log: %w", err)
	}
	return nil
}

func (l *appendLog) Close() error {
	return l.f.Close()
}
