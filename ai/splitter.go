package ai

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/neurosnap/sentences"
	"go.uber.org/zap"
)

// Splitter tokenizes text into sentences so replies can be cut on sentence
// boundaries. A nil Splitter is valid and treats the whole input as one
// sentence.
type Splitter struct {
	*sentences.DefaultSentenceTokenizer
}

// NewSplitter loads a punkt training model from path. The file may be
// gzipped. An empty path or a load failure turns sentence splitting off.
func NewSplitter(path string, log *zap.Logger) *Splitter {
	if len(path) == 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Unable to read sentence tokenizer model, turning off sentence splitting", zap.String("path", path), zap.Error(err))
		return nil
	}
	if bytes.HasPrefix(data, []byte{0x1f, 0x8b}) {
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			log.Warn("Unable to decompress sentence tokenizer model", zap.String("path", path), zap.Error(err))
			return nil
		}
		if data, err = io.ReadAll(r); err != nil {
			r.Close()
			log.Warn("Unable to decompress sentence tokenizer model", zap.String("path", path), zap.Error(err))
			return nil
		}
		r.Close()
	}

	model, err := sentences.LoadTraining(data)
	if err != nil {
		log.Warn("Unable to load sentence tokenizer model, turning off sentence splitting", zap.String("path", path), zap.Error(err))
		return nil
	}
	return &Splitter{sentences.NewSentenceTokenizer(model)}
}

// Split returns slice of sentences.
func (s *Splitter) Split(in string) []string {
	var out []string
	if s == nil {
		// sentence tokenizer is off
		return append(out, in)
	}

	for _, sentence := range s.Tokenize(in) {
		out = append(out, sentence.Text)
	}

	// Sentences tokenizer has a funny way of working - sentence trailing
	// spaces belong to the next sentence. Move leading spaces from the next
	// sentence to the current one.
	for i := range len(out) - 1 {
		for idx, sym := range out[i+1] {
			if !unicode.IsSpace(sym) {
				out[i] = out[i] + out[i+1][0:idx]
				out[i+1] = out[i+1][idx:]
				break
			}
		}
	}
	return out
}

// TrimToLimit cuts text to at most limit runes, preferring a sentence
// boundary. When even the first sentence does not fit, it is cut mid-word.
func (s *Splitter) TrimToLimit(text string, limit int) string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return text
	}

	var (
		b     strings.Builder
		total int
	)
	for _, sentence := range s.Split(text) {
		n := len([]rune(sentence))
		if total+n > limit {
			break
		}
		b.WriteString(sentence)
		total += n
	}
	if b.Len() > 0 {
		return strings.TrimRight(b.String(), " \t\n")
	}
	return string([]rune(text)[:limit])
}
