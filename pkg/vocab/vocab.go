// Package vocab provides a byte-level vocabulary bound to a specific
// model: the text<->token-id mapping the engine's stream refers to. It
// loads the standard HuggingFace tokenizer.json artifact.
package vocab

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable reports that no tokenizer artifact could be found for the
// model. Callers classify this as a decoder-unavailable condition, distinct
// from any transport failure.
var ErrUnavailable = errors.New("vocab: tokenizer artifact unavailable")

// Vocab maps between text and token ids using the GPT-2 reversible
// byte-level alphabet. Immutable after load; safe for concurrent use.
type Vocab struct {
	tokens  []string
	index   map[string]int
	special map[int]struct{}
	maxLen  int
}

// Size is the number of token ids.
func (v *Vocab) Size() int { return len(v.tokens) }

// TokenString returns the raw (byte-encoded) token for an id, or "" when
// out of range.
func (v *Vocab) TokenString(id int) string {
	if id < 0 || id >= len(v.tokens) {
		return ""
	}
	return v.tokens[id]
}

// IsSpecial reports whether the id is a special/control token.
func (v *Vocab) IsSpecial(id int) bool {
	_, ok := v.special[id]
	return ok
}

// Decode maps token ids to text, skipping special tokens. Ids out of range
// are an error. The result may end in an incomplete UTF-8 sequence when the
// id sequence is a truncated prefix; pkg/detok handles that boundary.
func (v *Vocab) Decode(ids []int) (string, error) {
	var b []byte
	for _, id := range ids {
		if id < 0 || id >= len(v.tokens) {
			return "", fmt.Errorf("vocab: token id out of range: %d", id)
		}
		if v.IsSpecial(id) {
			continue
		}
		b = appendTokenBytes(b, v.tokens[id])
	}
	return string(b), nil
}

// DecodeWithSpecial is Decode with special tokens rendered verbatim.
func (v *Vocab) DecodeWithSpecial(ids []int) (string, error) {
	var b []byte
	for _, id := range ids {
		if id < 0 || id >= len(v.tokens) {
			return "", fmt.Errorf("vocab: token id out of range: %d", id)
		}
		if v.IsSpecial(id) {
			b = append(b, v.tokens[id]...)
			continue
		}
		b = appendTokenBytes(b, v.tokens[id])
	}
	return string(b), nil
}

// Encode maps text to token ids by greedy longest-match over the
// byte-encoded form. It does not replay BPE merge order, so round-trips
// are exact but id sequences may differ from the training tokenizer; that
// is sufficient for pre-tokenized input and for tests.
func (v *Vocab) Encode(text string) ([]int, error) {
	enc := encodeBytes(text)
	var ids []int
	for len(enc) > 0 {
		match := ""
		limit := v.maxLen
		if limit > len(enc) {
			limit = len(enc)
		}
		// Longest token first; runes in the byte alphabet are up to 2
		// bytes wide so candidate cuts must land on rune boundaries.
		for end := limit; end > 0; end-- {
			cand := enc[:end]
			if !validCut(enc, end) {
				continue
			}
			if _, ok := v.index[cand]; ok {
				match = cand
				break
			}
		}
		if match == "" {
			return nil, fmt.Errorf("vocab: no token for %q", firstRune(enc))
		}
		ids = append(ids, v.index[match])
		enc = enc[len(match):]
	}
	return ids, nil
}

func validCut(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	return s[end]&0xC0 != 0x80
}

func firstRune(s string) string {
	for i := range s {
		if i > 0 {
			return s[:i]
		}
	}
	return s
}

func looksSpecial(tok string) bool {
	return len(tok) >= 4 && strings.HasPrefix(tok, "<|") && strings.HasSuffix(tok, "|>")
}
