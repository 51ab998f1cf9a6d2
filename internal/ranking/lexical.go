package ranking

import (
	"context"

	"vidlore/internal/textutil"
)

// LexicalScorer scores candidates by TF-IDF cosine similarity. It needs no
// network or model and backs the "lexical" scorer setting.
type LexicalScorer struct{}

// Score implements Scorer. The IDF corpus is the reference plus candidates.
func (LexicalScorer) Score(_ context.Context, reference string, candidates []string) ([]float64, error) {
	corpus := textutil.NewCorpus()
	ref := textutil.NewFingerprint(reference)
	corpus.Add(ref)
	fps := make([]*textutil.Fingerprint, len(candidates))
	for i, c := range candidates {
		fps[i] = textutil.NewFingerprint(c)
		corpus.Add(fps[i])
	}
	idf := corpus.IDF()
	ref = ref.WithIDF(idf)
	scores := make([]float64, len(candidates))
	for i, fp := range fps {
		scores[i] = textutil.CosineSimilarity(ref, fp.WithIDF(idf))
	}
	return scores, nil
}
