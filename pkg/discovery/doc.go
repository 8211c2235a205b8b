// Package discovery fans pod discovery out to every rack controller in
// parallel under one shared deadline and reduces the per-rack outcomes
// to a single best answer.
package discovery
