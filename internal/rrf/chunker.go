package rrf

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Chunk is a byte range of an RRF file that ends on a record boundary.
type Chunk struct {
	Offset int64
	Length int64
}

const boundaryScanSize = 64 * 1024

// PlanChunks splits the file at path into up to n byte ranges, advancing every
// interior boundary forward to the next newline so no record straddles two
// chunks. The returned ranges are ordered, non-empty, and cover the file with
// no gaps or overlaps. A file smaller than n spans yields fewer chunks. A
// missing file surfaces the os.Stat error (fs.ErrNotExist) to the caller.
func PlanChunks(path string, n int) ([]Chunk, error) {
	if n < 1 {
		n = 1
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("rrf: plan chunks: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rrf: plan chunks: %w", err)
	}
	defer f.Close()

	chunkSize := size / int64(n)
	if chunkSize < 1 {
		chunkSize = 1
	}

	var chunks []Chunk
	var start int64
	for start < size {
		end := start + chunkSize
		if end >= size {
			end = size
		} else {
			end, err = nextRecordBoundary(f, end, size)
			if err != nil {
				return nil, fmt.Errorf("rrf: plan chunks: %w", err)
			}
		}
		chunks = append(chunks, Chunk{Offset: start, Length: end - start})
		start = end
	}
	return chunks, nil
}

// nextRecordBoundary returns the position just past the first newline at or
// after pos, or the file size when no newline remains.
func nextRecordBoundary(f *os.File, pos, size int64) (int64, error) {
	buf := make([]byte, boundaryScanSize)
	for pos < size {
		n, err := f.ReadAt(buf, pos)
		if n > 0 {
			if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
				return pos + int64(i) + 1, nil
			}
			pos += int64(n)
		}
		if err == io.EOF {
			return size, nil
		}
		if err != nil {
			return 0, err
		}
	}
	return size, nil
}

// readChunk loads one planned chunk into memory. Chunks are bounded by the
// planner (file_size / workers), so a full read per worker is acceptable.
func readChunk(path string, c Chunk) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, c.Length)
	if _, err := io.ReadFull(io.NewSectionReader(f, c.Offset, c.Length), buf); err != nil {
		return nil, err
	}
	return buf, nil
}
