// Package memlang is a minimal in-memory key-value guest language.
//
// It exists to exercise the runtime's reference resolution without
// pulling in a real guest toolchain: every context owns a private
// Store, the language instance is exclusive per context, and the
// Machine type shows the intended call-site pattern of fixing
// references at specialization time.
package memlang
