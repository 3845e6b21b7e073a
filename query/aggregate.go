package query

import "github.com/dashpay/grovedb-go/merk"

// AggregateSumResult is one leaf matched by AggregateSumQuery.
type AggregateSumResult struct {
	Key []byte
	Sum int64
}

// AggregateSumQuery walks m's leaves in key order, including each one as
// long as the running sum accumulated so far (before that leaf's own
// value) is still below limitBySum, per spec.md §8 scenario S2's
// limit_by_sum semantics: inserting (a,7) (b,5) (c,3) (d,11) into a
// SumTree, limit_by_sum=10 yields [(a,7),(b,5)] since the running total
// reaches 12 (>=10) before c would be considered; limit_by_sum=13 still
// admits c (running total 12 < 13) but stops before d (running total 15).
//
// Grounded on aggregate_sum_query.rs's loop-and-accumulate shape: a
// single forward pass maintaining one running total, stopping the
// instant it would no longer admit another leaf.
func AggregateSumQuery(m *merk.Merk, limitBySum int64) []AggregateSumResult {
	var out []AggregateSumResult
	var running int64
	var walk func(t *merk.Tree) bool
	walk = func(t *merk.Tree) bool {
		if t == nil {
			return true
		}
		if t.Left != nil {
			left, _, err := m.ResolveChild(t.Left)
			if err != nil {
				return false
			}
			if !walk(left) {
				return false
			}
		}
		if running >= limitBySum {
			return false
		}
		out = append(out, AggregateSumResult{Key: append([]byte(nil), t.KV.Key...), Sum: t.KV.Feature.Sum})
		running += t.KV.Feature.Sum
		if t.Right != nil {
			right, _, err := m.ResolveChild(t.Right)
			if err != nil {
				return false
			}
			return walk(right)
		}
		return true
	}
	walk(m.Root())
	return out
}
