// Package hftokenizer wraps the HuggingFace tokenizers binding behind the
// engine's tokenizer contract.
package hftokenizer

import (
	"github.com/daulet/tokenizers"
	"github.com/pkg/errors"
)

// Tokenizer encodes and decodes text with a tokenizer.json file.
type Tokenizer struct {
	tk    *tokenizers.Tokenizer
	eosID int
}

// New loads a tokenizer.json. The EOS id is supplied by the caller since the
// file does not name it consistently across model families.
func New(path string, eosID int) (*Tokenizer, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading tokenizer from %s", path)
	}
	return &Tokenizer{tk: tk, eosID: eosID}, nil
}

// Encode converts text to token IDs
func (t *Tokenizer) Encode(text string) ([]int, error) {
	ids, _ := t.tk.Encode(text, true)
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out, nil
}

// Decode converts token IDs to text
func (t *Tokenizer) Decode(tokenIDs []int) (string, error) {
	ids := make([]uint32, len(tokenIDs))
	for i, id := range tokenIDs {
		ids[i] = uint32(id)
	}
	return t.tk.Decode(ids, true), nil
}

// EOSTokenID returns the EOS token ID
func (t *Tokenizer) EOSTokenID() int {
	return t.eosID
}

// VocabSize returns the tokenizer vocabulary size
func (t *Tokenizer) VocabSize() int {
	return int(t.tk.VocabSize())
}

// Close releases the underlying native tokenizer
func (t *Tokenizer) Close() error {
	t.tk.Close()
	return nil
}
