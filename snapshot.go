// snapshot.go: Saving and restoring complete registry state
//
// Snapshot captures every binding and every flag's mutable state; Restore
// brings the registry back, dropping flags defined in between. The
// flagsaver package builds its scoped override guards on top of this.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

type flagState struct {
	value             interface{}
	defaultValue      interface{}
	defaultUnparsed   interface{}
	present           int
	usingDefaultValue bool
	aliases           []string
	validators        []*validator
}

// Snapshot is an opaque copy of a registry's state.
type Snapshot struct {
	fv               *FlagValues
	bindings         map[string]*Flag
	states           map[*Flag]flagState
	flagsByModule    map[string][]*Flag
	keyFlagsByModule map[string][]*Flag
	moduleOrder      []string
	parsed           bool
	args             []string
}

func copyModuleTable(table map[string][]*Flag) map[string][]*Flag {
	out := make(map[string][]*Flag, len(table))
	for module, list := range table {
		out[module] = append([]*Flag(nil), list...)
	}
	return out
}

// Snapshot captures the current state of every flag and binding.
func (fv *FlagValues) Snapshot() *Snapshot {
	s := &Snapshot{
		fv:               fv,
		bindings:         make(map[string]*Flag, len(fv.flags)),
		states:           make(map[*Flag]flagState, len(fv.flags)),
		flagsByModule:    copyModuleTable(fv.flagsByModule),
		keyFlagsByModule: copyModuleTable(fv.keyFlagsByModule),
		moduleOrder:      append([]string(nil), fv.moduleOrder...),
		parsed:           fv.parsed,
		args:             append([]string(nil), fv.args...),
	}
	for name, f := range fv.flags {
		s.bindings[name] = f
		if _, done := s.states[f]; done {
			continue
		}
		s.states[f] = flagState{
			value:             cloneValue(f.value),
			defaultValue:      cloneValue(f.defaultValue),
			defaultUnparsed:   cloneValue(f.defaultUnparsed),
			present:           f.present,
			usingDefaultValue: f.usingDefaultValue,
			aliases:           append([]string(nil), f.aliases...),
			validators:        append([]*validator(nil), f.validators...),
		}
	}
	return s
}

// Restore puts the registry back into the captured state. Flags defined
// after the snapshot are unregistered.
func (fv *FlagValues) Restore(s *Snapshot) {
	if s == nil || s.fv != fv {
		return
	}
	for f, st := range s.states {
		old := f.Serialize()
		f.value = cloneValue(st.value)
		f.defaultValue = cloneValue(st.defaultValue)
		f.defaultUnparsed = cloneValue(st.defaultUnparsed)
		f.present = st.present
		f.usingDefaultValue = st.usingDefaultValue
		f.aliases = append([]string(nil), st.aliases...)
		f.validators = append([]*validator(nil), st.validators...)
		if old != f.Serialize() {
			fv.audit(EventFlagRestored, f, SourceSnapshot, old)
		}
	}
	fv.flags = make(map[string]*Flag, len(s.bindings))
	for name, f := range s.bindings {
		fv.flags[name] = f
	}
	fv.flagsByModule = copyModuleTable(s.flagsByModule)
	fv.keyFlagsByModule = copyModuleTable(s.keyFlagsByModule)
	fv.moduleOrder = append([]string(nil), s.moduleOrder...)
	fv.parsed = s.parsed
	fv.args = append([]string(nil), s.args...)
}

// Assign stores a typed value without running validators. Callers that
// assign several flags at once validate them together with ValidateFlags.
func (fv *FlagValues) Assign(name string, value interface{}) error {
	f := fv.flags[name]
	if f == nil {
		return flagNotFoundError(name)
	}
	old := f.Serialize()
	if err := f.assign(value); err != nil {
		return err
	}
	fv.audit(EventFlagSet, f, SourceDirect, old)
	return nil
}

// ParseFlagValue resets a flag and parses tokens into it as if they were
// given on the command line, without running validators.
func (fv *FlagValues) ParseFlagValue(name string, tokens ...string) error {
	f := fv.flags[name]
	if f == nil {
		return flagNotFoundError(name)
	}
	old := f.Serialize()
	f.Unparse()
	for _, token := range tokens {
		if err := f.Parse(token); err != nil {
			return err
		}
	}
	f.usingDefaultValue = false
	fv.audit(EventFlagParsed, f, SourceDirect, old)
	return nil
}

// ValidateFlags runs the validators attached to the named flags.
func (fv *FlagValues) ValidateFlags(names []string) error {
	var validators []*validator
	seen := make(map[*validator]bool)
	for _, name := range names {
		f := fv.flags[name]
		if f == nil {
			return flagNotFoundError(name)
		}
		for _, v := range f.validators {
			if !seen[v] {
				seen[v] = true
				validators = append(validators, v)
			}
		}
	}
	return fv.runValidators(validators)
}
