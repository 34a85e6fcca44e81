package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/query"
)

// pageSize bounds the hits fetched per request when walking the whole index.
const pageSize = 1000

// BleveIndex implements Reader over a bleve index opened read-only.
type BleveIndex struct {
	index    bleve.Index
	logger   *zap.Logger
	meta     map[string]struct{}
	analyzer Analyzer

	fieldsOnce sync.Once
	fields     []string
	fieldsErr  error

	idsOnce sync.Once
	ids     []string
	ords    map[string]int
	idsErr  error

	totalsOnce sync.Once
	totals     map[string]int64
	totalsErr  error

	fieldAnalyzers sync.Map // field -> Analyzer
}

// BleveOption configures a BleveIndex.
type BleveOption func(*BleveIndex)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) BleveOption {
	return func(b *BleveIndex) { b.logger = l }
}

// WithMetadataFields names stored fields that are not text fields.
func WithMetadataFields(names ...string) BleveOption {
	return func(b *BleveIndex) {
		for _, n := range names {
			if n != "" {
				b.meta[n] = struct{}{}
			}
		}
	}
}

// WithAnalyzer sets the analyzer applied to query text. By default the
// mapping analyzer of the first text field is used.
func WithAnalyzer(a Analyzer) BleveOption {
	return func(b *BleveIndex) { b.analyzer = a }
}

// OpenBleve opens the bleve index at path read-only.
func OpenBleve(path string, opts ...BleveOption) (*BleveIndex, error) {
	idx, err := bleve.OpenUsing(path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, fmt.Errorf("%w: open bleve index %s: %v", ErrIndexAccess, path, err)
	}
	return NewBleveIndex(idx, opts...), nil
}

// NewBleveIndex wraps an already opened bleve index.
func NewBleveIndex(idx bleve.Index, opts ...BleveOption) *BleveIndex {
	b := &BleveIndex{
		index:  idx,
		logger: zap.NewNop(),
		meta: map[string]struct{}{
			DefaultDocnoField:  {},
			DefaultLengthField: {},
			DefaultTimeField:   {},
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BleveIndex) DocCount() (int, error) {
	n, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("%w: doc count: %v", ErrIndexAccess, err)
	}
	return int(n), nil
}

func (b *BleveIndex) Fields() ([]string, error) {
	b.fieldsOnce.Do(func() {
		all, err := b.index.Fields()
		if err != nil {
			b.fieldsErr = fmt.Errorf("%w: list fields: %v", ErrIndexAccess, err)
			return
		}
		for _, f := range all {
			if strings.HasPrefix(f, "_") {
				continue
			}
			if _, ok := b.meta[f]; ok {
				continue
			}
			b.fields = append(b.fields, f)
		}
		sort.Strings(b.fields)
	})
	return b.fields, b.fieldsErr
}

// loadIDs assigns internal ids as ordinals of the sorted external ids.
func (b *BleveIndex) loadIDs() error {
	b.idsOnce.Do(func() {
		n, err := b.DocCount()
		if err != nil {
			b.idsErr = err
			return
		}
		b.ords = make(map[string]int, n)
		for from := 0; from < n; from += pageSize {
			req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), pageSize, from, false)
			req.SortBy([]string{"_id"})
			res, err := b.index.Search(req)
			if err != nil {
				b.idsErr = fmt.Errorf("%w: list documents: %v", ErrIndexAccess, err)
				return
			}
			for _, hit := range res.Hits {
				b.ords[hit.ID] = len(b.ids)
				b.ids = append(b.ids, hit.ID)
			}
			if len(res.Hits) < pageSize {
				break
			}
		}
		b.logger.Debug("document ids loaded", zap.Int("documents", len(b.ids)))
	})
	return b.idsErr
}

func (b *BleveIndex) externalID(docID int) (string, error) {
	if err := b.loadIDs(); err != nil {
		return "", err
	}
	if docID < 0 || docID >= len(b.ids) {
		return "", fmt.Errorf("%w: internal id %d", ErrDocumentNotFound, docID)
	}
	return b.ids[docID], nil
}

// fieldAnalyzer returns the mapping analyzer of field.
func (b *BleveIndex) fieldAnalyzer(field string) Analyzer {
	if a, ok := b.fieldAnalyzers.Load(field); ok {
		return a.(Analyzer)
	}
	m := b.index.Mapping()
	name := m.AnalyzerNameForPath(field)
	var a Analyzer
	if ba := m.AnalyzerNamed(name); ba != nil {
		a = &bleveAnalyzer{name: name, analyze: ba.Analyze}
	} else {
		b.logger.Warn("field analyzer not found, using standard",
			zap.String("field", field), zap.String("analyzer", name))
		a, _ = NewAnalyzer(AnalyzerStandard)
	}
	actual, _ := b.fieldAnalyzers.LoadOrStore(field, a)
	return actual.(Analyzer)
}

// storedDoc fetches stored values of one document.
func (b *BleveIndex) storedDoc(ext string, names []string) (map[string]interface{}, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{ext}))
	req.Size = 1
	req.Fields = names
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: load document %s: %v", ErrIndexAccess, ext, err)
	}
	if len(res.Hits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, ext)
	}
	return res.Hits[0].Fields, nil
}

// storedString renders a stored value. Array values are joined by spaces.
func storedString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := storedString(e); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " "), len(parts) > 0
	default:
		return "", false
	}
}

// totalsPass counts the tokens of every text field over the whole index.
func (b *BleveIndex) totalsPass() error {
	b.totalsOnce.Do(func() {
		fields, err := b.Fields()
		if err != nil {
			b.totalsErr = err
			return
		}
		n, err := b.DocCount()
		if err != nil {
			b.totalsErr = err
			return
		}
		b.totals = make(map[string]int64, len(fields))
		for from := 0; from < n; from += pageSize {
			req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), pageSize, from, false)
			req.Fields = fields
			req.SortBy([]string{"_id"})
			res, err := b.index.Search(req)
			if err != nil {
				b.totalsErr = fmt.Errorf("%w: count terms: %v", ErrIndexAccess, err)
				return
			}
			for _, hit := range res.Hits {
				for _, f := range fields {
					if text, ok := storedString(hit.Fields[f]); ok {
						b.totals[f] += int64(len(b.fieldAnalyzer(f).Tokens(text)))
					}
				}
			}
			if len(res.Hits) < pageSize {
				break
			}
		}
		b.logger.Debug("field term totals computed", zap.Any("totals", b.totals))
	})
	return b.totalsErr
}

func (b *BleveIndex) SumTotalTermFreq(field string) (int64, error) {
	if err := b.totalsPass(); err != nil {
		return 0, err
	}
	return b.totals[field], nil
}

func (b *BleveIndex) VocabularySize(field string) (int64, error) {
	dict, err := b.index.FieldDict(field)
	if err != nil {
		return 0, fmt.Errorf("%w: field dictionary %s: %v", ErrIndexAccess, field, err)
	}
	defer dict.Close()
	var n int64
	for {
		entry, err := dict.Next()
		if err != nil {
			return 0, fmt.Errorf("%w: field dictionary %s: %v", ErrIndexAccess, field, err)
		}
		if entry == nil {
			return n, nil
		}
		n++
	}
}

func termQuery(field, term string) *blevequery.TermQuery {
	q := bleve.NewTermQuery(term)
	q.SetField(field)
	return q
}

func (b *BleveIndex) DocFreq(field, term string) (int64, error) {
	req := bleve.NewSearchRequest(termQuery(field, term))
	req.Size = 0
	res, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("%w: document frequency of %s:%s: %v", ErrIndexAccess, field, term, err)
	}
	return int64(res.Total), nil
}

func (b *BleveIndex) TotalTermFreq(field, term string) (int64, error) {
	df, err := b.DocFreq(field, term)
	if err != nil || df == 0 {
		return 0, err
	}
	req := bleve.NewSearchRequest(termQuery(field, term))
	req.Size = int(df)
	req.IncludeLocations = true
	res, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("%w: term frequency of %s:%s: %v", ErrIndexAccess, field, term, err)
	}
	var n int64
	for _, hit := range res.Hits {
		n += int64(len(hit.Locations[field][term]))
	}
	return n, nil
}

func (b *BleveIndex) TermVector(docID int, field string) ([]Posting, error) {
	ext, err := b.externalID(docID)
	if err != nil {
		return nil, err
	}
	stored, err := b.storedDoc(ext, []string{field})
	if err != nil {
		return nil, err
	}
	text, ok := storedString(stored[field])
	if !ok {
		return nil, nil
	}
	return b.fieldAnalyzer(field).Tokens(text), nil
}

func (b *BleveIndex) StoredFields(docID int, names []string) (map[string]string, error) {
	ext, err := b.externalID(docID)
	if err != nil {
		return nil, err
	}
	stored, err := b.storedDoc(ext, names)
	if err != nil {
		return nil, err
	}
	return storedStrings(stored, names), nil
}

// storedStrings renders the named stored values that are present.
func storedStrings(stored map[string]interface{}, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		if s, ok := storedString(stored[n]); ok {
			out[n] = s
		}
	}
	return out
}

func (b *BleveIndex) DocID(field, value string) (int, error) {
	if err := b.loadIDs(); err != nil {
		return -1, err
	}
	if field == IDField {
		if ord, ok := b.ords[value]; ok {
			return ord, nil
		}
		return -1, fmt.Errorf("%w: %s=%q", ErrDocumentNotFound, field, value)
	}
	req := bleve.NewSearchRequest(termQuery(field, value))
	req.Size = 1
	req.SortBy([]string{"_id"})
	res, err := b.index.Search(req)
	if err != nil {
		return -1, fmt.Errorf("%w: lookup %s=%q: %v", ErrIndexAccess, field, value, err)
	}
	if len(res.Hits) == 0 {
		// Documents indexed under their docno are found by id.
		if ord, ok := b.ords[value]; ok {
			return ord, nil
		}
		return -1, fmt.Errorf("%w: %s=%q", ErrDocumentNotFound, field, value)
	}
	return b.ords[res.Hits[0].ID], nil
}

// clauseQuery builds the candidate query of one clause over its fields.
// Phrases are retrieved as conjunctions and filtered on positions afterwards.
func clauseQuery(c query.Clause, fields []string) blevequery.Query {
	per := make([]blevequery.Query, 0, len(fields))
	for _, f := range clauseFields(c, fields) {
		if !c.Phrase {
			per = append(per, termQuery(f, c.Terms[0]))
			continue
		}
		conj := make([]blevequery.Query, len(c.Terms))
		for i, t := range c.Terms {
			conj[i] = termQuery(f, t)
		}
		per = append(per, bleve.NewConjunctionQuery(conj...))
	}
	if len(per) == 1 {
		return per[0]
	}
	return bleve.NewDisjunctionQuery(per...)
}

func locationPositions(locs search.FieldTermLocationMap) positionsFunc {
	return func(field, term string) []int {
		ls := locs[field][term]
		out := make([]int, len(ls))
		for i, l := range ls {
			out[i] = int(l.Pos) - 1
		}
		return out
	}
}

func (b *BleveIndex) Search(ctx context.Context, q *query.Query, opts SearchOptions) ([]Match, error) {
	pq, err := prepare(q, b.Analyze)
	if err != nil {
		return nil, err
	}
	fields := opts.Fields
	if len(fields) == 0 {
		if fields, err = b.Fields(); err != nil {
			return nil, err
		}
	}
	if err := b.loadIDs(); err != nil {
		return nil, err
	}
	if len(b.ids) == 0 {
		return nil, nil
	}

	bq := bleve.NewBooleanQuery()
	phrases := false
	for _, c := range pq.Clauses {
		cq := clauseQuery(c, fields)
		switch c.Occur {
		case query.Must:
			bq.AddMust(cq)
		case query.MustNot:
			bq.AddMustNot(cq)
		default:
			bq.AddShould(cq)
		}
		phrases = phrases || c.Phrase
	}

	size := len(b.ids)
	if opts.Limit > 0 && !phrases {
		size = opts.Limit
	}
	req := bleve.NewSearchRequest(bq)
	req.Size = size
	req.IncludeLocations = true
	req.Fields = opts.StoredFields
	req.SortBy([]string{"-_score", "_id"})
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrIndexAccess, err)
	}

	out := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		pos := locationPositions(hit.Locations)
		if !matches(pq, fields, pos) {
			continue
		}
		ord, ok := b.ords[hit.ID]
		if !ok {
			continue
		}
		out = append(out, Match{
			DocID:  ord,
			Freqs:  termFreqs(pq, fields, pos),
			Stored: storedStrings(hit.Fields, opts.StoredFields),
		})
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	b.logger.Debug("bleve search",
		zap.String("query", pq.String()),
		zap.Uint64("total", res.Total),
		zap.Int("matches", len(out)))
	return out, nil
}

func (b *BleveIndex) Analyze(text string) []string {
	if b.analyzer != nil {
		return Terms(b.analyzer, text)
	}
	fields, err := b.Fields()
	if err != nil || len(fields) == 0 {
		a, _ := NewAnalyzer(AnalyzerStandard)
		return Terms(a, text)
	}
	return Terms(b.fieldAnalyzer(fields[0]), text)
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
