// Package janus is a distributed command-line flags registry.
//
// Any package can declare typed flags from its init code; all of them land
// in one namespace, a FlagValues, which parses the command line once and
// hands out typed values afterwards.
//
// # Defining flags
//
// The package-level helpers define on CommandLine and return typed holders:
//
//	var (
//		port    = janus.Int("port", 8080, "port to listen on", janus.LowerBound(1))
//		mode    = janus.Enum("mode", "fast", []string{"fast", "safe"}, "run mode")
//		targets = janus.MultiString("target", nil, "target host, may be repeated")
//	)
//
//	func main() {
//		args, err := janus.Parse(os.Args[1:])
//		if err != nil {
//			log.Fatal(err)
//		}
//		serve(port.Value(), mode.Value(), targets.Value(), args)
//	}
//
// Reading a flag before Parse fails with UnparsedFlagAccessError unless
// the flag was defined with AvailableBeforeParse. Define and DefineMulti
// accept any ArgumentParser/ArgumentSerializer pair.
//
// # Command-line syntax
//
// Parse accepts --name=value, -name=value, --name value, a bare --name for
// booleans and --noname to clear them. "--" ends flag parsing. Tokens that
// are not flags are returned as positional arguments; parsing continues
// after them unless SetGnuGetopt(false) was called.
//
// --flagfile=PATH inserts the tokens of PATH, one or more per line with
// shell quoting; blank lines and lines starting with # or // are skipped.
// Flagfiles nest up to Config.MaxFlagfileDepth levels and a file already
// being expanded is skipped with a warning.
//
// Unknown flags fail the parse with an UnrecognizedFlagError listing the
// closest known names, unless they are named in --undefok=a,b or
// Config.AllowUndefined is set. ParseKnown returns them instead.
//
// # Validation
//
// Validators registered with RegisterValidator, RegisterMultiFlagsValidator
// and the Mark* helpers run after every Parse and on every Set. All
// failures are collected into one error.
//
// # Modules and key flags
//
// Every flag remembers the Go package that defined it. A package can
// declare flags of other packages as its key flags; HelpShort shows the key
// flags of package main only.
//
// # Serialization
//
// FlagsIntoString writes the current state as flagfile lines in a stable
// order, suitable for AppendFlagsIntoFile and as a cache key.
//
// # Audit trail
//
// With Config.Audit set, every value change is recorded with its source
// (argv, a flagfile, a direct Set, a snapshot restore) into SQLite or a
// JSON-lines file.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package janus
