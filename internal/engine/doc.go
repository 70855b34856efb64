// Package engine evaluates a set of named output terms over panel data.
//
// A Run proceeds in four steps:
//  1. build the term graph and find how many lookback rows it needs;
//  2. load every loadable column in one Loader call, with the lookback rows
//     in front of the output rows;
//  3. compute the graph level by level, running the terms of one level
//     concurrently; every term sees its inputs' arrays and the root mask,
//     both covering the lookback rows too;
//  4. trim the lookback rows off the requested outputs.
//
// Terms are pure and immutable, so concurrent evaluation needs no locking
// beyond the results map. When a ResultCache is configured, each computed
// term is stored under ir.ResultKey(term ID, fingerprint of the loaded
// data and mask), and a later run over the same data reuses it.
package engine
