package bench

import (
	"context"
	"errors"
	"fmt"
)

// Compare runs input through each named module in order, one call per
// module, and returns the successful results. Failed modules are reported
// in the joined error; the remaining modules still run.
func Compare(ctx context.Context, c Controller, modules []string, entryPoint, input string) ([]Result, error) {
	if len(modules) == 0 {
		return nil, errors.New("no modules to compare")
	}

	results := make([]Result, 0, len(modules))

	var errs []error
	for _, name := range modules {
		res, err := c.Run(ctx, Request{
			Module:     name,
			EntryPoint: entryPoint,
			Input:      input,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}

		results = append(results, *res)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("every module failed: %w", errors.Join(errs...))
	}

	return results, errors.Join(errs...)
}
