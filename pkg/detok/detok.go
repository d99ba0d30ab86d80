// Package detok converts streams of token ids into text deltas. Many
// tokenizers are not prefix-compatible: decoding ids one at a time garbles
// output near multi-byte character and merged-token boundaries, so Decoder
// re-decodes the entire accumulated sequence on every step and emits only
// the new, complete suffix.
package detok

import (
	"errors"
	"unicode/utf8"
)

// Vocab maps token ids to text. pkg/vocab provides an implementation; any
// vocabulary bound to the served model works.
type Vocab interface {
	Decode(ids []int) (string, error)
}

// ErrNoVocab reports that text decoding was requested without a vocabulary
// provider. This is a construction-time failure, independent of transport
// health, and is never degraded to raw-id output.
var ErrNoVocab = errors.New("detok: no vocabulary provider")

// Full decodes a complete token sequence in one step. Stateless; used for
// non-streaming completions.
func Full(v Vocab, ids []int) (string, error) {
	if v == nil {
		return "", ErrNoVocab
	}
	return v.Decode(ids)
}

// Decoder incrementally decodes one streamed choice. It is exclusively
// owned by that choice's consumer and must see token ids in arrival order;
// decoders for different choices or requests are independent.
type Decoder struct {
	vocab   Vocab
	ids     []int
	decoded string
	emitted int
}

// New builds a decoder bound to one choice stream.
func New(v Vocab) (*Decoder, error) {
	if v == nil {
		return nil, ErrNoVocab
	}
	return &Decoder{vocab: v}, nil
}

// Delta appends newIDs, re-decodes the whole accumulated sequence, and
// returns the suffix beyond what was previously emitted. A trailing
// incomplete UTF-8 sequence is withheld until a later token completes it;
// in that case the emitted string may be empty. Concatenating Delta outputs
// (plus a final Flush) equals Full over the accumulated ids.
func (d *Decoder) Delta(newIDs []int) (string, error) {
	d.ids = append(d.ids, newIDs...)
	full, err := d.vocab.Decode(d.ids)
	if err != nil {
		return "", err
	}
	d.decoded = full

	stable := completePrefixLen(full)
	if stable < d.emitted {
		// A re-decode may not shrink below what was already handed out.
		stable = d.emitted
	}
	out := full[d.emitted:stable]
	d.emitted = stable
	return out, nil
}

// Flush emits any withheld trailing bytes. Call once the choice is
// terminal so a stream ending mid-character loses nothing.
func (d *Decoder) Flush() string {
	out := d.decoded[d.emitted:]
	d.emitted = len(d.decoded)
	return out
}

// Text is everything emitted so far.
func (d *Decoder) Text() string { return d.decoded[:d.emitted] }

// TokenIDs is a copy of the accumulated sequence.
func (d *Decoder) TokenIDs() []int {
	return append([]int(nil), d.ids...)
}

// Reset discards all accumulated state, freeing the id buffer.
func (d *Decoder) Reset() {
	d.ids = nil
	d.decoded = ""
	d.emitted = 0
}

// completePrefixLen returns the length of the longest prefix of s that does
// not end in a truncated multi-byte sequence. Only the final sequence can
// be completed by a later token; stray bytes elsewhere pass through.
func completePrefixLen(s string) int {
	n := len(s)
	if n == 0 {
		return 0
	}
	i := n - 1
	for i >= 0 && n-i < utf8.UTFMax && s[i]&0xC0 == 0x80 {
		i--
	}
	if i < 0 {
		return n
	}
	var want int
	switch b := s[i]; {
	case b&0x80 == 0x00:
		want = 1
	case b&0xE0 == 0xC0:
		want = 2
	case b&0xF0 == 0xE0:
		want = 3
	case b&0xF8 == 0xF0:
		want = 4
	default:
		// Orphan continuation byte: no later token completes it.
		return n
	}
	if n-i < want {
		return i
	}
	return n
}
