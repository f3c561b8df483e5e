// Package schema provides the principal schematics shared by all other
// packages. It defines the trapped register snapshot, the interrupt-return
// frame and the dispatch outcomes exchanged between the interrupt layer, the
// syscall dispatcher and the scheduler. It also provides implementations for
// the (Unix-based) host operating system syscalls backing disk images.
package schema
