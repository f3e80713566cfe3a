// Package information implements the information-theoretic kernels:
// zlib compression ratio, normalized compression distance with a
// MinHash/LSH pre-filter, TF-IDF cosine coherence, and concept
// extraction over token co-occurrence communities.
package information

import (
	"bytes"

	"github.com/klauspost/compress/zlib"
)

// compressionLevel matches zlib level 6, the reference payload setting.
const compressionLevel = 6

// compressedSize returns |zlib(content)|. Content is an opaque byte
// payload; encoding does not matter.
func compressedSize(content []byte) int {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, compressionLevel)
	if err != nil {
		return len(content)
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return len(content)
	}
	if err := w.Close(); err != nil {
		return len(content)
	}
	return buf.Len()
}

// CompressionRatio returns |zlib(content)| / |content|, or 0 for empty
// content. Highly repetitive files compress far below 1; high-entropy
// files can slightly exceed it.
func CompressionRatio(content []byte) float64 {
	if len(content) == 0 {
		return 0
	}
	return float64(compressedSize(content)) / float64(len(content))
}

// NCD computes the normalized compression distance
// (C(xy) - min(C(x), C(y))) / max(C(x), C(y)).
// Results are in [0, 1+epsilon]; identical inputs land near 0.
func NCD(x, y []byte) float64 {
	cx := compressedSize(x)
	cy := compressedSize(y)
	xy := make([]byte, 0, len(x)+len(y))
	xy = append(xy, x...)
	xy = append(xy, y...)
	cxy := compressedSize(xy)

	minC, maxC := cx, cy
	if cy < cx {
		minC, maxC = cy, cx
	}
	if maxC == 0 {
		return 0
	}
	return float64(cxy-minC) / float64(maxC)
}
