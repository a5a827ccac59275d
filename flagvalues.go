// flagvalues.go: The FlagValues registry
//
// A FlagValues maps names, short names and aliases to flags, remembers
// which module defined or declared each flag, and gates value reads until
// the command line was parsed. It performs no locking: flags are defined
// from init functions, Parse runs once from main, and later mutation is
// serialized by the caller (see the flagsaver package).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"log/slog"
	"reflect"
	"runtime"
	"sort"
	"strings"
)

// FlagValues is a registry of flags.
type FlagValues struct {
	config Config
	logger *slog.Logger

	flags            map[string]*Flag
	flagsByModule    map[string][]*Flag
	keyFlagsByModule map[string][]*Flag
	moduleOrder      []string
	disclaimed       map[string]bool

	validatorSeq int
	parsed       bool
	parsing      bool
	gnuGetopt    bool
	args         []string
}

// New creates an empty registry.
func New(config Config) *FlagValues {
	cfg := config.WithDefaults()
	return &FlagValues{
		config:           *cfg,
		logger:           cfg.Logger,
		flags:            make(map[string]*Flag),
		flagsByModule:    make(map[string][]*Flag),
		keyFlagsByModule: make(map[string][]*Flag),
		disclaimed:       make(map[string]bool),
		gnuGetopt:        true,
	}
}

// CommandLine is the process-wide registry used by the package-level
// helpers.
var CommandLine = New(Config{})

// Config returns a copy of the registry configuration.
func (fv *FlagValues) Config() Config { return fv.config }

// SetAudit attaches (or with nil detaches) an audit logger.
func (fv *FlagValues) SetAudit(audit *AuditLogger) { fv.config.Audit = audit }

// SetLogger replaces the diagnostics logger.
func (fv *FlagValues) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	fv.config.Logger = logger
	fv.logger = logger
}

// SetGnuGetopt controls whether positional arguments may be interleaved
// with flags. When off, the first positional argument ends flag parsing.
func (fv *FlagValues) SetGnuGetopt(enabled bool) { fv.gnuGetopt = enabled }

// IsGnuGetopt reports the positional argument mode.
func (fv *FlagValues) IsGnuGetopt() bool { return fv.gnuGetopt }

// IsParsed reports whether Parse completed.
func (fv *FlagValues) IsParsed() bool { return fv.parsed }

// MarkAsParsed opens the parsed gate without parsing anything.
func (fv *FlagValues) MarkAsParsed() { fv.parsed = true }

// Args returns the positional arguments left over by the last Parse.
func (fv *FlagValues) Args() []string { return append([]string(nil), fv.args...) }

// Register adds f under its name and short name. A name already bound to
// a different flag is an error unless either side allows override, in
// which case f replaces the old binding.
func (fv *FlagValues) Register(f *Flag) error {
	if f == nil {
		return definitionError("cannot register a nil flag")
	}
	if f.module == "" {
		f.module = fv.callerModule()
	}

	names := []string{f.name}
	if f.shortName != "" {
		names = append(names, f.shortName)
	}
	for _, name := range names {
		if err := fv.checkCollision(name, f); err != nil {
			return err
		}
	}

	var replaced []*Flag
	for _, name := range names {
		if old := fv.flags[name]; old != nil && old != f {
			replaced = append(replaced, old)
		}
		fv.flags[name] = f
	}
	fv.addModuleFlag(fv.flagsByModule, f.module, f)
	for _, old := range replaced {
		fv.cleanupUnregistered(old)
	}
	return nil
}

func (fv *FlagValues) checkCollision(name string, f *Flag) error {
	existing := fv.flags[name]
	if existing == nil || existing == f {
		return nil
	}
	if f.allowOverride || existing.allowOverride {
		return nil
	}
	return newDuplicateFlagError(name, existing.module, f.module)
}

func (fv *FlagValues) addModuleFlag(table map[string][]*Flag, module string, f *Flag) {
	if _, known := fv.flagsByModule[module]; !known {
		if _, declared := fv.keyFlagsByModule[module]; !declared {
			fv.moduleOrder = append(fv.moduleOrder, module)
		}
	}
	for _, existing := range table[module] {
		if existing == f {
			return
		}
	}
	table[module] = append(table[module], f)
}

func (fv *FlagValues) isRegistered(f *Flag) bool {
	for _, bound := range fv.flags {
		if bound == f {
			return true
		}
	}
	return false
}

// cleanupUnregistered drops f from the module tables once no name refers
// to it anymore.
func (fv *FlagValues) cleanupUnregistered(f *Flag) {
	if fv.isRegistered(f) {
		return
	}
	for _, table := range []map[string][]*Flag{fv.flagsByModule, fv.keyFlagsByModule} {
		for module, list := range table {
			kept := list[:0]
			for _, candidate := range list {
				if candidate != f {
					kept = append(kept, candidate)
				}
			}
			table[module] = kept
		}
	}
}

// DefineAlias binds name to the flag currently registered as original.
// The alias shares the flag: value, default, present count and validators.
func (fv *FlagValues) DefineAlias(name, original string) error {
	f := fv.flags[original]
	if f == nil {
		return flagNotFoundError(original)
	}
	if err := validateFlagName(name); err != nil {
		return err
	}
	if existing := fv.flags[name]; existing != nil {
		if existing == f {
			return nil
		}
		if !existing.allowOverride {
			return newDuplicateFlagError(name, existing.module, fv.callerModule())
		}
	}
	old := fv.flags[name]
	fv.flags[name] = f
	f.aliases = append(f.aliases, name)
	if old != nil {
		fv.cleanupUnregistered(old)
	}
	return nil
}

// Remove unbinds name. The flag disappears from module tables once none of
// its names is bound anymore.
func (fv *FlagValues) Remove(name string) error {
	f := fv.flags[name]
	if f == nil {
		return flagNotFoundError(name)
	}
	delete(fv.flags, name)
	for i, alias := range f.aliases {
		if alias == name {
			f.aliases = append(f.aliases[:i:i], f.aliases[i+1:]...)
			break
		}
	}
	fv.cleanupUnregistered(f)
	return nil
}

// AppendFlagValues registers every flag of other in fv.
func (fv *FlagValues) AppendFlagValues(other *FlagValues) error {
	if other == nil {
		return nil
	}
	for _, f := range other.distinctFlags() {
		if err := fv.Register(f); err != nil {
			return err
		}
		for _, alias := range f.aliases {
			if existing := fv.flags[alias]; existing != nil && existing != f && !existing.allowOverride {
				return newDuplicateFlagError(alias, existing.module, f.module)
			}
			fv.flags[alias] = f
		}
	}
	return nil
}

// Lookup returns the flag bound to name, or nil.
func (fv *FlagValues) Lookup(name string) *Flag { return fv.flags[name] }

// Names returns every bound name (primary, short and alias), sorted.
func (fv *FlagValues) Names() []string {
	names := make([]string, 0, len(fv.flags))
	for name := range fv.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// distinctFlags returns every registered flag once, sorted by name.
func (fv *FlagValues) distinctFlags() []*Flag {
	seen := make(map[*Flag]bool, len(fv.flags))
	out := make([]*Flag, 0, len(fv.flags))
	for _, f := range fv.flags {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Flags returns every registered flag once, sorted by primary name.
func (fv *FlagValues) Flags() []*Flag { return fv.distinctFlags() }

// VisitAll calls fn for every registered flag in name order.
func (fv *FlagValues) VisitAll(fn func(*Flag)) {
	for _, f := range fv.distinctFlags() {
		fn(f)
	}
}

// Get returns the current value of a flag. Before Parse completed this
// fails with UnparsedFlagAccessError unless the flag was defined with
// AvailableBeforeParse.
func (fv *FlagValues) Get(name string) (interface{}, error) {
	f := fv.flags[name]
	if f == nil {
		return nil, flagNotFoundError(name)
	}
	if !fv.parsed && !f.preParseAccess {
		return nil, newUnparsedFlagAccessError(name)
	}
	return cloneValue(f.value), nil
}

// Set assigns a typed value directly and runs the flag's validators.
func (fv *FlagValues) Set(name string, value interface{}) error {
	if err := fv.Assign(name, value); err != nil {
		return err
	}
	return fv.assertFlagValidators(fv.flags[name])
}

// SetDefault changes the default of a flag. The current value follows
// when the flag still uses its default.
func (fv *FlagValues) SetDefault(name string, value interface{}) error {
	f := fv.flags[name]
	if f == nil {
		return flagNotFoundError(name)
	}
	old := f.DefaultAsString()
	if err := f.setDefault(value); err != nil {
		return err
	}
	fv.config.Audit.LogFlagChange(EventFlagDefaultChanged, f, SourceDirect, old, f.DefaultAsString())
	return fv.assertFlagValidators(f)
}

// UnparseFlags resets every flag to its default and closes the parsed gate.
func (fv *FlagValues) UnparseFlags() {
	for _, f := range fv.distinctFlags() {
		old := f.Serialize()
		f.Unparse()
		if old != f.Serialize() {
			fv.audit(EventFlagUnparsed, f, SourceDirect, old)
		}
	}
	fv.parsed = false
	fv.args = nil
}

func (fv *FlagValues) audit(event string, f *Flag, source, old string) {
	if fv.config.Audit == nil {
		return
	}
	fv.config.Audit.LogFlagChange(event, f, source, old, f.Serialize())
}

// FlagsByModule returns, per module, the flags it defined in definition order.
func (fv *FlagValues) FlagsByModule() map[string][]*Flag {
	out := make(map[string][]*Flag, len(fv.flagsByModule))
	for module, list := range fv.flagsByModule {
		if len(list) > 0 {
			out[module] = append([]*Flag(nil), list...)
		}
	}
	return out
}

// FindModuleDefiningFlag returns the module that defined name, or "".
func (fv *FlagValues) FindModuleDefiningFlag(name string) string {
	f := fv.flags[name]
	if f == nil {
		return ""
	}
	for _, module := range fv.moduleOrder {
		for _, candidate := range fv.flagsByModule[module] {
			if candidate == f {
				return module
			}
		}
	}
	return f.module
}

// KeyFlagsForModule returns the flags module defined followed by the flags
// it declared or adopted, each once.
func (fv *FlagValues) KeyFlagsForModule(module string) []*Flag {
	var out []*Flag
	seen := make(map[*Flag]bool)
	for _, list := range [][]*Flag{fv.flagsByModule[module], fv.keyFlagsByModule[module]} {
		for _, f := range list {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// DeclareKeyFlag marks an already defined flag as key for the calling
// module, so that it shows up in the module's help.
func (fv *FlagValues) DeclareKeyFlag(name string) error {
	return fv.DeclareKeyFlagFor(fv.callerModule(), name)
}

// DeclareKeyFlagFor is DeclareKeyFlag with an explicit module.
func (fv *FlagValues) DeclareKeyFlagFor(module, name string) error {
	f := fv.flags[name]
	if f == nil {
		return flagNotFoundError(name)
	}
	fv.addModuleFlag(fv.keyFlagsByModule, module, f)
	return nil
}

// AdoptModuleKeyFlags declares every key flag of module as key for the
// calling module.
func (fv *FlagValues) AdoptModuleKeyFlags(module string) error {
	caller := fv.callerModule()
	if module == caller {
		return definitionError("module %s cannot adopt its own key flags", module)
	}
	for _, f := range fv.KeyFlagsForModule(module) {
		fv.addModuleFlag(fv.keyFlagsByModule, caller, f)
	}
	return nil
}

// DisclaimKeyFlags makes flags defined by the calling package count as
// defined by whoever calls into it. Helper libraries that define flags on
// behalf of their users call this from init.
func (fv *FlagValues) DisclaimKeyFlags() {
	fv.disclaimed[fv.callerModule()] = true
}

var selfPackage = packageOf(runtime.FuncForPC(reflect.ValueOf(packageOf).Pointer()).Name())

// packageOf extracts the import path from a fully qualified function name
// such as "github.com/x/y.(*T).M".
func packageOf(funcName string) string {
	slash := strings.LastIndex(funcName, "/")
	if slash < 0 {
		slash = 0
	}
	if dot := strings.Index(funcName[slash:], "."); dot >= 0 {
		return funcName[:slash+dot]
	}
	return funcName
}

// callerModule walks the stack to the first frame outside this package
// (test files excepted) and outside disclaimed packages.
func (fv *FlagValues) callerModule() string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		pkg := packageOf(frame.Function)
		internal := pkg == selfPackage && !strings.HasSuffix(frame.File, "_test.go")
		if pkg != "" && !internal && !fv.disclaimed[pkg] {
			return pkg
		}
		if !more {
			break
		}
	}
	return "main"
}
