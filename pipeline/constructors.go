package pipeline

import "github.com/nrminor/genotype/record"

// FastaAccessors is the Accessors value for *record.Fasta.
func FastaAccessors() Accessors[*record.Fasta] {
	return Accessors[*record.Fasta]{
		ID:          func(r *record.Fasta) string { return r.ID },
		WithID:      func(r *record.Fasta, id string) *record.Fasta { c := *r; c.ID = id; return &c },
		Description: func(r *record.Fasta) string { return r.Description },
		Sequence:    func(r *record.Fasta) string { return r.Sequence },
		WithSequence: func(r *record.Fasta, s string) *record.Fasta {
			c := *r
			c.Sequence = s
			return &c
		},
		HasQuality: false,
	}
}

// FastqAccessors is the Accessors value for *record.Fastq.
func FastqAccessors() Accessors[*record.Fastq] {
	return Accessors[*record.Fastq]{
		ID:          func(r *record.Fastq) string { return r.ID },
		WithID:      func(r *record.Fastq, id string) *record.Fastq { c := *r; c.ID = id; return &c },
		Description: func(r *record.Fastq) string { return r.Description },
		Sequence:    func(r *record.Fastq) string { return r.Sequence },
		WithSequence: func(r *record.Fastq, s string) *record.Fastq {
			c := *r
			c.Sequence = s
			return &c
		},
		HasQuality: true,
		Quality:    func(r *record.Fastq) string { return r.Quality },
		WithQuality: func(r *record.Fastq, q string) *record.Fastq {
			c := *r
			c.Quality = q
			return &c
		},
		QualityEncoding: func(r *record.Fastq) record.QualityEncoding { return r.QualityEncoding },
	}
}

// NewFasta builds a SeqOps chain head from a FASTA record source (e.g. an
// encoding/fasta.Reader's Record/Scan/Err cursor, adapted to Next via
// FromReader-style helpers in the calling package).
func NewFasta(next Next[*record.Fasta]) *Ops[*record.Fasta] {
	return New(next, FastaAccessors())
}

// NewFastq builds a SeqOps chain head from a FASTQ record source.
func NewFastq(next Next[*record.Fastq]) *Ops[*record.Fastq] {
	return New(next, FastqAccessors())
}
