// Package numexpr holds expression-backed terms' shared machinery: the
// operator table, expression text over positional placeholders, the input
// merging used when two expressions are combined, and an elementwise
// evaluator built on expr-lang.
//
// Placeholders are spelled x_0, x_1, ... and refer to an expression's bound
// inputs by position. Combining expressions never duplicates an input: shared
// inputs are reused and the other side's placeholders renumbered.
package numexpr
