package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
)

// LocalEngine is a deterministic, dependency-free feature-hashing
// embedding model. It hashes word unigrams and character trigrams of the
// input into a fixed-width signed accumulator (the classic
// feature-hashing / "hashing trick" construction) and L2-normalizes the
// result. Being a pure function of its input, it needs no warm-up, no
// model file, and no network call.
type LocalEngine struct {
	dims int
}

// NewLocalEngine constructs a LocalEngine with the given output dimension.
func NewLocalEngine(dims int) *LocalEngine {
	if dims <= 0 {
		dims = 256
	}
	return &LocalEngine{dims: dims}
}

func (e *LocalEngine) Dimensions() int { return e.dims }
func (e *LocalEngine) Name() string    { return "local-feature-hash" }

// Embed hashes text into a fixed-width vector.
func (e *LocalEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dims)

	for _, tok := range tokenize(text) {
		hashInto(vec, tok, 1.0)
	}
	for _, tri := range trigrams(text) {
		hashInto(vec, tri, 0.4)
	}

	out := make([]float32, e.dims)
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch embeds every text independently; the local engine has no
// shared per-call setup cost to amortize, unlike a network-backed engine.
func (e *LocalEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "LocalEngine.EmbedBatch")
	defer timer.Stop()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// hashInto accumulates a signed contribution for token into vec, using two
// independent hash bits: one for the bucket index, one for the sign. The
// sign bit decorrelates hash collisions so unrelated tokens landing in the
// same bucket tend to cancel rather than reinforce.
func hashInto(vec []float64, token string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum64()

	idx := int(sum % uint64(len(vec)))
	sign := 1.0
	if sum&(1<<63) != 0 {
		sign = -1.0
	}
	vec[idx] += sign * weight
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// trigrams returns overlapping 3-character windows over the lowercased,
// whitespace-collapsed text, giving the embedding partial robustness to
// misspellings and unseen tokens.
func trigrams(text string) []string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	runes := []rune(norm)
	if len(runes) < 3 {
		if len(runes) == 0 {
			return nil
		}
		return []string{string(runes)}
	}
	grams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+3]))
	}
	return grams
}
