package ranking

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// paramSpec declares one numeric parameter of a method.
type paramSpec struct {
	name     string
	def      float64
	min, max float64
}

// methods maps each scoring family to its parameters.
var methods = map[Method][]paramSpec{
	Dirichlet:     {{name: ParamMu, def: DefaultMu, min: 0, max: math.MaxFloat64}},
	JelinekMercer: {{name: ParamLambda, def: DefaultLambda, min: 0, max: 1}},
	BM25: {
		{name: ParamK1, def: DefaultK1, min: 0, max: math.MaxFloat64},
		{name: ParamB, def: DefaultB, min: 0, max: 1},
	},
	TFIDF: nil,
}

// aliases maps accepted method names to their family.
var aliases = map[string]Method{
	"dirichlet":      Dirichlet,
	"dir":            Dirichlet,
	"jelinek-mercer": JelinekMercer,
	"jm":             JelinekMercer,
	"linear":         JelinekMercer,
	"bm25":           BM25,
	"tfidf":          TFIDF,
	"classic":        TFIDF,
	"default":        TFIDF,
}

// Factory parses model specifications.
type Factory struct {
	logger *zap.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithLogger sets the logger used for unknown-method warnings.
func WithLogger(l *zap.Logger) FactoryOption {
	return func(f *Factory) { f.logger = l }
}

// NewFactory creates a factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Parse resolves a specification of the form key:value(,key:value)*.
//
// The method key selects the family; the other keys are numeric parameters of
// that family. Trailing empty fragments are dropped. Other fragments without
// ':' and present but unparseable parameters fail with ErrInvalidSpec. An unknown method is not an error: it logs a
// warning and resolves to DefaultModel. An empty spec resolves to DefaultModel
// and a spec without method resolves to dirichlet.
func (f *Factory) Parse(spec string) (Model, error) {
	if strings.TrimSpace(spec) == "" {
		return DefaultModel(), nil
	}
	fragments := strings.Split(spec, ",")
	for len(fragments) > 0 && strings.TrimSpace(fragments[len(fragments)-1]) == "" {
		fragments = fragments[:len(fragments)-1]
	}
	raw := make(map[string]string)
	for _, fragment := range fragments {
		key, value, ok := strings.Cut(fragment, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return Model{}, fmt.Errorf("%w: malformed fragment %q in %q", ErrInvalidSpec, fragment, spec)
		}
		raw[key] = strings.TrimSpace(value)
	}

	name, hasMethod := raw["method"]
	delete(raw, "method")
	method := Dirichlet
	if hasMethod {
		m, known := aliases[strings.ToLower(name)]
		if !known {
			f.logger.Warn("unknown scoring method, using default",
				zap.String("method", name),
				zap.String("default", DefaultSpec))
			return DefaultModel(), nil
		}
		method = m
	}

	params := make(map[string]float64, len(methods[method]))
	for _, p := range methods[method] {
		value, present := raw[p.name]
		delete(raw, p.name)
		if !present {
			params[p.name] = p.def
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Model{}, fmt.Errorf("%w: %s parameter %q has non-numeric value %q", ErrInvalidSpec, method, p.name, value)
		}
		if v < p.min || v > p.max {
			return Model{}, fmt.Errorf("%w: %s parameter %q=%v out of range", ErrInvalidSpec, method, p.name, v)
		}
		params[p.name] = v
	}
	for k := range raw {
		f.logger.Debug("ignoring parameter not used by scoring method",
			zap.String("method", string(method)),
			zap.String("param", k))
	}
	return Model{Method: method, Params: params}, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func (f *Factory) MustParse(spec string) Model {
	m, err := f.Parse(spec)
	if err != nil {
		panic(err)
	}
	return m
}

// KnownMethod reports whether name is an accepted method name or alias.
func KnownMethod(name string) bool {
	_, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
