// Package criteria describes which records a query selects without knowing
// how they are stored.
//
// A Criteria accumulates predicates keyed by (field, operator). Calling the
// same operator on the same field again appends a value instead of replacing
// the earlier one. Executors interpret a Snapshot with one rule: distinct
// (field, operator) pairs, groups and emptiness checks are AND-ed, the values
// under a single pair or group are OR-ed.
//
//	snap := criteria.NewCriteria().
//		Equals("color", "red").
//		Equals("color", "blue").
//		Range("id", 2, 6).
//		MarkNotEmpty("name").
//		Snapshot()
//
// selects records whose color is red or blue, whose id lies in [2, 6] and
// whose name is set.
package criteria
