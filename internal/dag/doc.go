// Package dag holds the dependency structure of a build: a directed graph of
// task names with edges pointing from a dependency to its dependents.
//
// Nodes remember the order in which they were declared. Every ordering the
// package produces breaks ties by that declaration order, so two runs over
// the same descriptor schedule tasks identically.
package dag
