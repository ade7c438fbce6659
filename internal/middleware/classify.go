package middleware

import "okrhub/internal/docstore"

// classifyGetAll maps a get-all result onto its outcome. A missing collection
// is the first-run condition and reads as an empty success.
func classifyGetAll[T any](items []T, err error, succeed func([]T) Outcome, fail func(error) Outcome) Outcome {
	switch {
	case err == nil:
		if items == nil {
			items = []T{}
		}
		return succeed(items)
	case docstore.IsCollectionMissing(err):
		return succeed([]T{})
	default:
		return fail(err)
	}
}
