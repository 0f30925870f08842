// Write terminal stages (spec §4.F `writeFasta/writeFastq/writeBed/
// writeSam/writeCsv/writeTsv`) are format-specific top-level functions
// rather than Ops[T] methods, since each wires a distinct encoding/*
// writer. Compression is inferred from the destination path's extension,
// mirroring compress.Wrap's magic-byte detection on read (spec §4.A) with
// the symmetric extension-based choice on write.
package pipeline

import (
	"io"
	"os"

	"github.com/nrminor/genotype/compress"
	"github.com/nrminor/genotype/encoding/bed"
	"github.com/nrminor/genotype/encoding/dsv"
	"github.com/nrminor/genotype/encoding/fasta"
	"github.com/nrminor/genotype/encoding/fastq"
	"github.com/nrminor/genotype/encoding/sam"
	"github.com/nrminor/genotype/internal/gterr"
	"github.com/nrminor/genotype/record"
)

// openSink opens path for writing, wrapping it in a compress.NewWriter
// chosen by compress.FormatFromPath (spec §4.E "compression inferred from
// path extension"), the writer-side mirror of compress.Wrap's read-side
// magic-byte detection.
func openSink(path string) (io.Writer, func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, gterr.New(gterr.File, nil, "create %s: %v", path, err)
	}
	cw, cerr := compress.NewWriter(f, compress.FormatFromPath(path))
	if cerr != nil {
		_ = f.Close()
		return nil, nil, cerr
	}
	return cw, func() error {
		if err := cw.Close(); err != nil {
			return err
		}
		return f.Close()
	}, nil
}

// WriteFasta writes every remaining record to path as FASTA.
func WriteFasta(o *Ops[*record.Fasta], path string, opts fasta.WriterOptions) error {
	f, closeFn, err := openSink(path)
	if err != nil {
		return err
	}
	defer closeFn()
	w := fasta.NewWriter(f, opts)
	if derr := o.drain(func(r *record.Fasta) error { return w.Write(r) }); derr != nil {
		return derr
	}
	return w.Flush()
}

// WriteFastq writes every remaining record to path as FASTQ.
func WriteFastq(o *Ops[*record.Fastq], path string, opts fastq.WriterOptions) error {
	f, closeFn, err := openSink(path)
	if err != nil {
		return err
	}
	defer closeFn()
	w := fastq.NewWriter(f, opts)
	if derr := o.drain(func(r *record.Fastq) error { return w.Write(r) }); derr != nil {
		return derr
	}
	return w.Flush()
}

// WriteBed writes every remaining record to path as BED.
func WriteBed(o *Ops[*record.BedInterval], path string) error {
	f, closeFn, err := openSink(path)
	if err != nil {
		return err
	}
	defer closeFn()
	w := bed.NewWriter(f)
	if derr := o.drain(func(r *record.BedInterval) error { return w.Write(r) }); derr != nil {
		return derr
	}
	return w.Flush()
}

// WriteSam writes header then every remaining record to path as SAM.
func WriteSam(o *Ops[*record.SamAlignment], path string, header []record.SamHeader, opts sam.WriterOptions) error {
	f, closeFn, err := openSink(path)
	if err != nil {
		return err
	}
	defer closeFn()
	w := sam.NewWriter(f, opts)
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	if derr := o.drain(func(r *record.SamAlignment) error { return w.Write(r) }); derr != nil {
		return derr
	}
	return w.Flush()
}

// WriteCsv writes every remaining record to path as comma-delimited DSV.
func WriteCsv(o *Ops[*record.Dsv], path string, header []string) error {
	return writeDsv(o, path, header, dsv.WriterOptions{Delimiter: ','})
}

// WriteTsv writes every remaining record to path as tab-delimited DSV.
func WriteTsv(o *Ops[*record.Dsv], path string, header []string) error {
	return writeDsv(o, path, header, dsv.WriterOptions{Delimiter: '\t'})
}

func writeDsv(o *Ops[*record.Dsv], path string, header []string, opts dsv.WriterOptions) error {
	f, closeFn, err := openSink(path)
	if err != nil {
		return err
	}
	defer closeFn()
	w := dsv.NewWriter(f, opts)
	if len(header) > 0 {
		if err := w.WriteHeader(header); err != nil {
			return err
		}
	}
	if derr := o.drain(func(r *record.Dsv) error { return w.Write(r) }); derr != nil {
		return derr
	}
	return w.Flush()
}
