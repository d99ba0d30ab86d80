package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// tokenizerJSON is the subset of HuggingFace tokenizer.json we need.
type tokenizerJSON struct {
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
	Model struct {
		Vocab map[string]int `json:"vocab"`
	} `json:"model"`
}

// Load parses a tokenizer.json artifact into a Vocab.
func Load(path string) (*Vocab, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, path)
		}
		return nil, err
	}
	var tj tokenizerJSON
	if err := json.Unmarshal(raw, &tj); err != nil {
		return nil, fmt.Errorf("vocab: parse %s: %w", path, err)
	}
	if len(tj.Model.Vocab) == 0 && len(tj.AddedTokens) == 0 {
		return nil, fmt.Errorf("vocab: %s carries no vocabulary", path)
	}

	maxID := -1
	for _, id := range tj.Model.Vocab {
		if id > maxID {
			maxID = id
		}
	}
	for _, at := range tj.AddedTokens {
		if at.ID > maxID {
			maxID = at.ID
		}
	}

	v := &Vocab{
		tokens:  make([]string, maxID+1),
		index:   make(map[string]int, len(tj.Model.Vocab)+len(tj.AddedTokens)),
		special: make(map[int]struct{}),
	}
	for tok, id := range tj.Model.Vocab {
		if id < 0 {
			return nil, fmt.Errorf("vocab: negative token id %d for %q", id, tok)
		}
		v.tokens[id] = tok
		v.index[tok] = id
		if len(tok) > v.maxLen {
			v.maxLen = len(tok)
		}
	}
	for _, at := range tj.AddedTokens {
		v.tokens[at.ID] = at.Content
		v.index[at.Content] = at.ID
		if at.Special || looksSpecial(at.Content) {
			v.special[at.ID] = struct{}{}
		}
		if len(at.Content) > v.maxLen {
			v.maxLen = len(at.Content)
		}
	}
	return v, nil
}

// ForModel resolves the tokenizer artifact from a model path: the file
// itself, or tokenizer.json inside a model directory. A missing artifact is
// ErrUnavailable so callers can distinguish "no local tokenizer" from a
// malformed one.
func ForModel(modelPath string) (*Vocab, error) {
	info, err := os.Stat(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, modelPath)
	}
	if info.IsDir() {
		return Load(filepath.Join(modelPath, "tokenizer.json"))
	}
	return Load(modelPath)
}
