// Package grading assigns a traffic-light trust level to extracted payloads.
// Grading is pure and deterministic: no I/O, no clock, same inputs always
// produce the same grade. Rules run in a fixed order and the first failing
// rule decides the result.
package grading
