package mock

import "github.com/fwojciec/docchat"

var _ docchat.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of docchat.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*docchat.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*docchat.ExtractResult, error) {
	return e.ExtractFn(html)
}

var _ docchat.Cleaner = (*Cleaner)(nil)

// Cleaner is a mock implementation of docchat.Cleaner.
type Cleaner struct {
	CleanFn func(html string) (string, string, error)
}

func (c *Cleaner) Clean(html string) (string, string, error) {
	return c.CleanFn(html)
}
