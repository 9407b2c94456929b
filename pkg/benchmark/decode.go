package benchmark

import (
	"fmt"
	"io"

	"github.com/go-json-experiment/json"
)

// DecodeBenchmark parses a benchmark JSON document and validates it.
func DecodeBenchmark(data []byte) (*Benchmark, error) {
	var b Benchmark
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// DecodeBenchmarkReader parses a benchmark JSON document from r.
func DecodeBenchmarkReader(r io.Reader) (*Benchmark, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return DecodeBenchmark(data)
}
