package msi

import (
	"github.com/samber/lo"

	"github.com/msitools/msiparser"
)

// Result is the outcome of one item of a best-effort enumeration.
type Result struct {
	Item string
	Err  error
}

// Report collects per-item outcomes. A failed item is skipped; the
// enumeration carries on with the next one.
type Report struct {
	Results []Result
}

// Add records the outcome of an item.
func (r *Report) Add(item string, err error) {
	r.Results = append(r.Results, Result{Item: item, Err: err})
}

// Failed returns the items that were skipped.
func (r *Report) Failed() []Result {
	return lo.Filter(r.Results, func(res Result, _ int) bool { return res.Err != nil })
}

// Succeeded returns the names of the items that were handled.
func (r *Report) Succeeded() []string {
	return lo.FilterMap(r.Results, func(res Result, _ int) (string, bool) { return res.Item, res.Err == nil })
}

// Err combines the errors of the skipped items, nil if there are none.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return msiparser.WrapErr(lo.Map(failed, func(res Result, _ int) error { return res.Err })...)
}
