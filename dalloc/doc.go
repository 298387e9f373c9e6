// Package dalloc is a general-purpose memory allocator that manages a single heap region which only
// ever grows, in the manner of a classic sbrk-based malloc.
//
// Every block in the heap is preceded by a small header, and the headers form a list in address
// order. Reservations are placed in the first free block that fits, splitting off any excess that
// is large enough to be useful; when nothing fits, neighboring free blocks are merged and the search
// is retried before the heap is grown. Releasing a block merges it with its free neighbors right away.
//
// Allocators are created with New, and a process-wide allocator is available through Default and the
// package-level Reserve, Release, ZeroReserve and Resize functions.
//
// The garbage collector does not scan memory handed out by this package, so it must never be used
// to store Go pointers.
package dalloc
