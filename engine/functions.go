package engine

import (
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/viant/ayahvec/arabic"
	"github.com/viant/ayahvec/vector"
	sqlite "modernc.org/sqlite"
)

type registerFunc func(name string, nArgs int32, impl func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error)) error

// registration runs once and remembers its outcome for every later caller.
type registration struct {
	once sync.Once
	err  error
}

func (r *registration) do(register registerFunc) error {
	r.once.Do(func() {
		for _, fn := range []struct {
			name  string
			nArgs int32
			impl  func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error)
		}{
			{"vec_cosine", 2, vecCosineImpl},
			{"vec_l2", 2, vecL2Impl},
			{"ar_normalize", 1, arNormalizeImpl},
			{"ar_tokens", 1, arTokensImpl},
		} {
			if e := register(fn.name, fn.nArgs, fn.impl); e != nil && r.err == nil {
				r.err = fmt.Errorf("engine: register %s: %w", fn.name, e)
			}
		}
	})
	return r.err
}

var functions registration

// RegisterFunctions registers the following deterministic scalar functions
// with the driver:
//
//	vec_cosine(a BLOB, b BLOB) REAL   cosine similarity of two embeddings
//	vec_l2(a BLOB, b BLOB) REAL       Euclidean distance of two embeddings
//	ar_normalize(text TEXT) TEXT      text with diacritics removed
//	ar_tokens(text TEXT) INTEGER      number of word tokens
//
// Functions are visible on connections opened after the first call. Later
// calls return the first call's error.
func RegisterFunctions() error {
	return functions.do(sqlite.RegisterDeterministicScalarFunction)
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

func asText(arg driver.Value) (string, bool, error) {
	switch v := arg.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	default:
		return "", false, fmt.Errorf("ar: unsupported argument type %T; want TEXT", arg)
	}
}

func embeddingPair(name string, args []driver.Value) ([]float32, []float32, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func vecCosineImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := embeddingPair("vec_cosine", args)
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	return vector.CosineSimilarity(a, b)
}

func vecL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := embeddingPair("vec_l2", args)
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	return vector.L2Distance(a, b)
}

func arNormalizeImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, ok, err := asText(args[0])
	if err != nil || !ok {
		return nil, err
	}
	return arabic.Normalize(text), nil
}

func arTokensImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, ok, err := asText(args[0])
	if err != nil || !ok {
		return nil, err
	}
	return int64(arabic.DefaultTokenizer().Count(text)), nil
}
