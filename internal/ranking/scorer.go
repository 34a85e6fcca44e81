package ranking

import "math"

// CollectionStats are the collection-wide statistics a scorer needs.
type CollectionStats struct {
	DocCount     float64
	TermCount    float64
	AvgDocLength float64
}

// TermStats describes one query term.
type TermStats struct {
	Term     string
	Weight   float64
	DocFreq  float64
	CollFreq float64
}

// Doc is the part of a document a scorer reads: its length and the
// frequencies of the query terms it contains.
type Doc struct {
	Length float64
	Freqs  map[string]float64
}

// Scorer scores one document against weighted query terms.
type Scorer interface {
	Score(doc Doc, terms []TermStats, coll CollectionStats) float64
}

type dirichlet struct{ mu float64 }

func (s dirichlet) Score(doc Doc, terms []TermStats, coll CollectionStats) float64 {
	if coll.TermCount <= 0 {
		return 0
	}
	var score float64
	for _, t := range terms {
		if t.CollFreq <= 0 {
			continue
		}
		p := t.CollFreq / coll.TermCount
		score += t.Weight * math.Log((doc.Freqs[t.Term]+s.mu*p)/(doc.Length+s.mu))
	}
	return score
}

type jelinekMercer struct{ lambda float64 }

func (s jelinekMercer) Score(doc Doc, terms []TermStats, coll CollectionStats) float64 {
	if coll.TermCount <= 0 {
		return 0
	}
	var score float64
	for _, t := range terms {
		if t.CollFreq <= 0 {
			continue
		}
		p := t.CollFreq / coll.TermCount
		var ml float64
		if doc.Length > 0 {
			ml = doc.Freqs[t.Term] / doc.Length
		}
		v := (1-s.lambda)*ml + s.lambda*p
		if v <= 0 {
			continue
		}
		score += t.Weight * math.Log(v)
	}
	return score
}

type bm25 struct{ k1, b float64 }

func (s bm25) Score(doc Doc, terms []TermStats, coll CollectionStats) float64 {
	norm := 1.0
	if coll.AvgDocLength > 0 {
		norm = 1 - s.b + s.b*doc.Length/coll.AvgDocLength
	}
	var score float64
	for _, t := range terms {
		tf := doc.Freqs[t.Term]
		if tf <= 0 {
			continue
		}
		idf := math.Log(1 + (coll.DocCount-t.DocFreq+0.5)/(t.DocFreq+0.5))
		score += t.Weight * idf * tf * (s.k1 + 1) / (tf + s.k1*norm)
	}
	return score
}

type tfidf struct{}

func (tfidf) Score(doc Doc, terms []TermStats, coll CollectionStats) float64 {
	norm := 1.0
	if doc.Length > 0 {
		norm = 1 / math.Sqrt(doc.Length)
	}
	var score float64
	for _, t := range terms {
		tf := doc.Freqs[t.Term]
		if tf <= 0 {
			continue
		}
		idf := 1 + math.Log((coll.DocCount+1)/(t.DocFreq+1))
		score += t.Weight * math.Sqrt(tf) * idf * idf * norm
	}
	return score
}
