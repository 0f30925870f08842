// Package pipeline implements SeqOps (spec §4.F): a lazy, composable
// chain of record-to-record stages over any of genotype's record kinds.
// The chain does nothing until pulled by a terminal stage; construction
// of a non-terminal stage is O(1), matching the teacher's
// encoding/fastq.Downsample idiom of wrapping one pull function in
// another rather than materializing intermediate slices. Ops is generic
// over the record type so that the same stage implementations serve
// FASTA, FASTQ, and (where it makes sense) other record kinds, with
// format-specific behavior supplied once per record kind through an
// Accessors value rather than through format-specific stage code.
package pipeline

import (
	"context"
	"strings"

	"github.com/nrminor/genotype/internal/gterr"
	"github.com/nrminor/genotype/record"
	"github.com/nrminor/genotype/seq"
)

// Next pulls the next item from an upstream producer: ok=false with a nil
// error signals clean exhaustion; a non-nil error signals failure. This
// mirrors the cursor shape used by every encoding/* scanner (Scan/Record/Err)
// and by the sample package's Next[T], generalized to a single pull call.
type Next[T any] func() (T, bool, error)

// OnError selects how a stage reacts to a per-record error (spec §4.F
// "Error propagation").
type OnError int

const (
	// OnErrorPropagate terminates the pipeline with the error (default).
	OnErrorPropagate OnError = iota
	// OnErrorReject drops the offending record and continues.
	OnErrorReject
	// OnErrorCollect accumulates the error into a side channel and continues.
	OnErrorCollect
)

// Accessors projects the fields a generic stage needs out of a concrete
// record type T, and builds an updated copy when a stage needs to modify
// one. Every SeqOps constructor (NewFasta, NewFastq) supplies one of
// these once; stage implementations never type-switch on T.
type Accessors[T any] struct {
	ID              func(T) string
	WithID          func(T, string) T
	Description     func(T) string
	Sequence        func(T) string
	WithSequence    func(T, string) T
	HasQuality      bool
	Quality         func(T) string
	WithQuality     func(T, string) T
	QualityEncoding func(T) record.QualityEncoding
}

// Ops is one stage in a SeqOps chain: a pull function plus the accessors
// and error policy shared by every stage built on top of it. errs is a
// pointer shared by every Ops[T] derived from the same chain (WithOnError,
// chain, Head, WithContext all copy the struct but keep the same pointer),
// so an OnErrorCollect append made while pulling through an intermediate
// stage is visible from whichever downstream *Ops[T] the caller ultimately
// calls Errors() on.
type Ops[T any] struct {
	next    Next[T]
	acc     Accessors[T]
	onError OnError
	ctx     context.Context
	errs    *[]error
}

// New wraps next into the head of a SeqOps chain.
func New[T any](next Next[T], acc Accessors[T]) *Ops[T] {
	return &Ops[T]{next: next, acc: acc, ctx: context.Background(), errs: &[]error{}}
}

// WithOnError sets the error policy for every stage built after this call
// (spec §4.F: `reject`, `propagate`, `collect`).
func (o *Ops[T]) WithOnError(policy OnError) *Ops[T] {
	o2 := *o
	o2.onError = policy
	return &o2
}

// WithContext attaches a cancellation context, checked at each pull (spec §5).
func (o *Ops[T]) WithContext(ctx context.Context) *Ops[T] {
	o2 := *o
	o2.ctx = ctx
	return &o2
}

// Errors returns the side-channel errors accumulated under OnErrorCollect.
func (o *Ops[T]) Errors() []error { return *o.errs }

// pull advances the chain by one record, honoring cancellation.
func (o *Ops[T]) pull() (T, bool, error) {
	var zero T
	select {
	case <-o.ctx.Done():
		return zero, false, o.ctx.Err()
	default:
	}
	return o.next()
}

// chain builds a new Ops[T] whose pull function applies step to each
// record pulled from o, honoring o's error policy: propagate stops the
// chain, reject silently skips, collect records the error and skips.
func (o *Ops[T]) chain(step func(T) (T, bool, error)) *Ops[T] {
	next := func() (T, bool, error) {
		for {
			item, ok, err := o.pull()
			if err != nil || !ok {
				return item, ok, err
			}
			out, keep, serr := step(item)
			if serr != nil {
				switch o.onError {
				case OnErrorReject:
					continue
				case OnErrorCollect:
					*o.errs = append(*o.errs, serr)
					continue
				default:
					var zero T
					return zero, false, serr
				}
			}
			if !keep {
				continue
			}
			return out, true, nil
		}
	}
	n := *o
	n.next = next
	return &n
}

// FilterOptions configures the filter stage (spec §4.F `filter`).
type FilterOptions struct {
	MinLen, MaxLen int // 0 means unbounded
	MinGC, MaxGC   float64
	HasGCBound     bool
	Predicate      func(sequence string) bool
}

// Filter keeps records satisfying every configured condition, ANDed, with
// Predicate evaluated last (spec §4.F).
func (o *Ops[T]) Filter(opts FilterOptions) *Ops[T] {
	return o.chain(func(item T) (T, bool, error) {
		s := o.acc.Sequence(item)
		if opts.MinLen > 0 && len(s) < opts.MinLen {
			return item, false, nil
		}
		if opts.MaxLen > 0 && len(s) > opts.MaxLen {
			return item, false, nil
		}
		if opts.HasGCBound {
			gc := seq.GCContent(s)
			if gc < opts.MinGC || gc > opts.MaxGC {
				return item, false, nil
			}
		}
		if opts.Predicate != nil && !opts.Predicate(s) {
			return item, false, nil
		}
		return item, true, nil
	})
}

// Head emits only the first n records, then signals end of stream (spec
// §4.F `head`).
func (o *Ops[T]) Head(n int) *Ops[T] {
	count := 0
	next := func() (T, bool, error) {
		var zero T
		if count >= n {
			return zero, false, nil
		}
		item, ok, err := o.pull()
		if err != nil || !ok {
			return item, ok, err
		}
		count++
		return item, true, nil
	}
	n2 := *o
	n2.next = next
	return &n2
}

// Collect materializes every remaining record (spec §4.F `collect`).
func (o *Ops[T]) Collect() ([]T, error) {
	var out []T
	for {
		item, ok, err := o.pull()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}

// drain pulls every remaining record for side effect only, used by
// terminal stages that don't return the records themselves (spec §4.F
// `stats`, `split`, `writeX`).
func (o *Ops[T]) drain(visit func(T) error) error {
	for {
		item, ok, err := o.pull()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if verr := visit(item); verr != nil {
			return verr
		}
	}
}

// ValidationMode selects how strictly Validate checks sequence content
// (spec §4.F `validate`).
type ValidationMode int

const (
	ValidateNormal ValidationMode = iota
	ValidateStrict
	ValidatePermissive
)

// ValidationAction selects what Validate does with an invalid record.
type ValidationAction int

const (
	ActionReject ValidationAction = iota
	ActionFix
	ActionWarn
)

// ValidateOptions configures the validate stage.
type ValidateOptions struct {
	Mode    ValidationMode
	Action  ValidationAction
	FixChar byte
	OnWarn  func(item interface{}, msg string)
}

// Validate checks each record's sequence against an IUPAC alphabet
// appropriate to Mode, applying Action to violations (spec §4.F).
func (o *Ops[T]) Validate(opts ValidateOptions) *Ops[T] {
	fixChar := opts.FixChar
	if fixChar == 0 {
		fixChar = 'N'
	}
	return o.chain(func(item T) (T, bool, error) {
		s := o.acc.Sequence(item)
		invalidAt := firstInvalid(s, opts.Mode)
		if invalidAt < 0 {
			return item, true, nil
		}
		switch opts.Action {
		case ActionReject:
			return item, false, nil
		case ActionFix:
			fixed := replaceInvalid(s, opts.Mode, fixChar)
			if o.acc.WithSequence != nil {
				item = o.acc.WithSequence(item, fixed)
			}
			return item, true, nil
		default: // ActionWarn
			msg := "sequence contains characters invalid under the configured validation mode"
			if opts.OnWarn != nil {
				opts.OnWarn(item, msg)
			} else {
				gterr.Warnf("%s: %s", o.acc.ID(item), msg)
			}
			return item, true, nil
		}
	})
}

func firstInvalid(s string, mode ValidationMode) int {
	for i := 0; i < len(s); i++ {
		if !validByte(s[i], mode) {
			return i
		}
	}
	return -1
}

func replaceInvalid(s string, mode ValidationMode, fixChar byte) string {
	b := []byte(s)
	for i := range b {
		if !validByte(b[i], mode) {
			b[i] = fixChar
		}
	}
	return string(b)
}

func validByte(c byte, mode ValidationMode) bool {
	upper := c
	if upper >= 'a' && upper <= 'z' {
		upper -= 'a' - 'A'
	}
	switch mode {
	case ValidateStrict:
		switch upper {
		case 'A', 'C', 'G', 'T', 'U':
			return true
		}
		return false
	case ValidatePermissive:
		return upper >= 'A' && upper <= 'Z'
	default: // ValidateNormal: standard IUPAC
		switch upper {
		case 'A', 'C', 'G', 'T', 'U', 'R', 'Y', 'S', 'W', 'K', 'M', 'B', 'D', 'H', 'V', 'N':
			return true
		}
		return false
	}
}

// GrepOptions configures the grep stage (spec §4.F `grep`).
type GrepOptions struct {
	Pattern    string
	Regex      interface{ MatchString(string) bool }
	Target     GrepTarget
	IgnoreCase bool
}

// GrepTarget names which field grep matches against.
type GrepTarget int

const (
	GrepSequence GrepTarget = iota
	GrepID
	GrepDescription
)

// Grep keeps records whose target field matches Pattern (literal
// substring) or Regex (full regex) (spec §4.F). IgnoreCase is off unless
// set, for every target, and applies only to the literal Pattern; a Regex
// is matched as compiled.
func (o *Ops[T]) Grep(opts GrepOptions) *Ops[T] {
	return o.chain(func(item T) (T, bool, error) {
		var field string
		switch opts.Target {
		case GrepID:
			field = o.acc.ID(item)
		case GrepDescription:
			field = o.acc.Description(item)
		default:
			field = o.acc.Sequence(item)
		}
		if opts.Regex != nil {
			return item, opts.Regex.MatchString(field), nil
		}
		pattern := opts.Pattern
		if opts.IgnoreCase {
			field = strings.ToLower(field)
			pattern = strings.ToLower(pattern)
		}
		return item, strings.Contains(field, pattern), nil
	})
}
