package funnel

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// MultiSink fans a lead out to several sinks. Every sink is attempted even
// when an earlier one fails; the combined error carries all failures.
type MultiSink []LeadSink

// Save writes the lead to each sink in order.
func (m MultiSink) Save(ctx context.Context, lead Lead) error {
	var result *multierror.Error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Save(ctx, lead); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
