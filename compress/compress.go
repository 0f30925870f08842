// Package compress implements spec §4.A: transparent magic-byte detection
// and decompression for streams that have not yet been consumed by a
// downstream parser. The detection logic is grounded in the teacher's
// approach to gzip handling in encoding/fastq/downsample.go (auto-wrapping
// a file.File's reader in a gzip.Reader) and its bgzf package's writer
// (github.com/klauspost/compress), generalized here to a peekable,
// format-agnostic front end instead of a single hard-coded gzip call.
package compress

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/nrminor/genotype/internal/gterr"
)

// Format names a recognized (or absent) compression scheme.
type Format int

const (
	// None means the stream is not compressed, or compression could not be
	// determined with confidence.
	None Format = iota
	Gzip
	Zstd
	// Bzip2 and Xz are detected (spec §6 magic bytes) but not decompressed by
	// the core; a CompressionError is raised if a caller asks for transparent
	// decompression of either.
	Bzip2
	Xz
)

func (f Format) String() string {
	switch f {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Bzip2:
		return "bzip2"
	case Xz:
		return "xz"
	default:
		return "none"
	}
}

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicBzip2 = []byte{0x42, 0x5a}
	magicXz    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// Detection carries the outcome of magic-byte sniffing, including a
// confidence in [0,1] (spec §4.A: 1.0 for a magic match, 0.7 for an
// extension-only match, 0 when detection is ambiguous or too short).
type Detection struct {
	Format     Format
	Confidence float64
}

// Phase names where in the pipeline a CompressionError occurred.
type Phase int

const (
	PhaseDetect Phase = iota
	PhaseInflate
)

func (p Phase) String() string {
	if p == PhaseInflate {
		return "inflate"
	}
	return "detect"
}

// Error is the dedicated CompressionError from spec §4.A.
type Error struct {
	*gterr.Error
	Format Format
	Phase  Phase
}

func newError(format Format, phase Phase, cause error, format2 string, args ...interface{}) *Error {
	opts := []gterr.Option{}
	if cause != nil {
		opts = append(opts, gterr.Cause(cause))
	}
	return &Error{
		Error:  gterr.New(gterr.Compression, opts, format2, args...),
		Format: format,
		Phase:  phase,
	}
}

// Detect peeks at up to the first 6 bytes of r without consuming them from
// the caller's point of view, and reports which compression format (if any)
// the stream begins with. The returned io.Reader yields the exact same
// bytes r would have yielded; it must be used in place of r afterward.
func Detect(r io.Reader) (io.Reader, Detection, error) {
	br := bufio.NewReaderSize(r, 4096)
	head, err := br.Peek(len(magicXz))
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return br, Detection{Format: None}, errors.Wrap(err, "compress: peek")
	}
	if len(head) < 2 {
		return br, Detection{Format: None, Confidence: 0}, nil
	}
	switch {
	case len(head) >= 2 && head[0] == magicGzip[0] && head[1] == magicGzip[1]:
		return br, Detection{Format: Gzip, Confidence: 1.0}, nil
	case len(head) >= 4 && bytes.Equal(head[:4], magicZstd):
		return br, Detection{Format: Zstd, Confidence: 1.0}, nil
	case len(head) >= 2 && head[0] == magicBzip2[0] && head[1] == magicBzip2[1]:
		return br, Detection{Format: Bzip2, Confidence: 1.0}, nil
	case len(head) >= 6 && bytes.Equal(head[:6], magicXz):
		return br, Detection{Format: Xz, Confidence: 1.0}, nil
	default:
		return br, Detection{Format: None, Confidence: 0}, nil
	}
}

// DetectByExtension reports a Format guessed purely from a file extension,
// used only when magic-byte sniffing was unavailable (spec §4.A: extension
// match confidence 0.7).
func DetectByExtension(ext string) Detection {
	switch ext {
	case ".gz", ".gzip":
		return Detection{Format: Gzip, Confidence: 0.7}
	case ".zst", ".zstd":
		return Detection{Format: Zstd, Confidence: 0.7}
	case ".bz2":
		return Detection{Format: Bzip2, Confidence: 0.7}
	case ".xz":
		return Detection{Format: Xz, Confidence: 0.7}
	default:
		return Detection{Format: None, Confidence: 0}
	}
}

// Wrap transparently decompresses r according to its detected format,
// returning a reader that yields the decompressed payload. Only gzip and
// zstd are decompressed by the core (spec §1); bzip2/xz are detected but
// rejected with a CompressionError, matching "only gzip and zstd are
// decompressed by the core" in spec §6.
func Wrap(r io.Reader) (io.ReadCloser, Detection, error) {
	peeked, det, err := Detect(r)
	if err != nil {
		return nil, det, newError(None, PhaseDetect, err, "failed to sniff compression magic bytes")
	}
	switch det.Format {
	case Gzip:
		gr, err := gzip.NewReader(peeked)
		if err != nil {
			return nil, det, newError(Gzip, PhaseInflate, err, "invalid gzip stream")
		}
		return gr, det, nil
	case Zstd:
		zr, err := zstd.NewReader(peeked)
		if err != nil {
			return nil, det, newError(Zstd, PhaseInflate, err, "invalid zstd stream")
		}
		return zr.IOReadCloser(), det, nil
	case Bzip2, Xz:
		return nil, det, newError(det.Format, PhaseInflate, nil,
			"%s streams are detected but not decompressed by this module", det.Format)
	default:
		return io.NopCloser(peeked), det, nil
	}
}

// NewWriter returns a writer that compresses to w in the given format, or a
// pass-through writer for None. zstd write support is optional per spec §9
// (Open Questions): it is implemented here via klauspost/compress/zstd, but
// callers that need maximum portability should prefer Gzip.
func NewWriter(w io.Writer, format Format) (io.WriteCloser, error) {
	switch format {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	case None:
		return nopWriteCloser{w}, nil
	default:
		return nil, newError(format, PhaseInflate, nil, "writing %s is not supported", format)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// FormatFromPath infers a compression Format from a file path's extension,
// for use by pipeline writers (spec §4.F "compression inferred from path
// extension").
func FormatFromPath(path string) Format {
	for _, suffix := range []struct {
		ext string
		f   Format
	}{
		{".gz", Gzip},
		{".gzip", Gzip},
		{".zst", Zstd},
		{".zstd", Zstd},
	} {
		if strings.HasSuffix(path, suffix.ext) {
			return suffix.f
		}
	}
	return None
}
