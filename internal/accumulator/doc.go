// Package accumulator folds decoded character runs into counts.
//
// Each accumulator owns its state for exactly one scan. Runs are processed one
// window at a time and nothing is matched across window boundaries:
//
//	counter := accumulator.NewCharCounter(accumulator.DefaultExclusions)
//	counter.Add([]rune("hello world"))
//	counter.Table.Count('l') // 3
//
// FrequencyTable remembers the order in which keys were first seen, which the
// ranker relies on to order keys with equal counts deterministically.
package accumulator
