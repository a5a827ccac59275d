// help.go: Help output in plain text, XML and YAML
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"go.yaml.in/yaml/v3"
	"golang.org/x/term"
)

const (
	defaultHelpWidth = 80
	minHelpWidth     = 40
	// MainModule is the module name Go assigns to the main package.
	MainModule = "main"
)

// helpWidth picks the configured width, else the terminal width, else 80.
func (fv *FlagValues) helpWidth() int {
	if fv.config.HelpWidth > 0 {
		return fv.config.HelpWidth
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width >= minHelpWidth {
			return width
		}
	}
	return defaultHelpWidth
}

// textWrap wraps text to width, indenting the first line with
// firstIndent and the following lines with indent.
func textWrap(text string, width int, indent, firstIndent string) string {
	limit := width - len(indent)
	if limit < minHelpWidth/2 {
		limit = minHelpWidth / 2
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		wrapped := wordwrap.WrapString(paragraph, uint(limit))
		lines = append(lines, strings.Split(wrapped, "\n")...)
	}
	for i := range lines {
		if i == 0 {
			lines[i] = firstIndent + lines[i]
		} else {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func (f *Flag) quotedDefault() string {
	if f.defaultValue == nil {
		return ""
	}
	if f.codec.boolean() {
		return fmt.Sprintf("'%t'", f.defaultValue.(bool))
	}
	return "'" + f.DefaultAsString() + "'"
}

// renderFlag formats one flag the way --help shows it.
func (fv *FlagValues) renderFlag(f *Flag, prefix string, width int) string {
	var head strings.Builder
	if f.shortName != "" {
		head.WriteString("-" + f.shortName + ",")
	}
	if f.Boolean() {
		head.WriteString("--[no]" + f.name + ": ")
	} else {
		head.WriteString("--" + f.name + ": ")
	}
	enum := f.EnumValues()
	if len(enum) > 0 {
		head.WriteString("<" + strings.Join(enum, "|") + ">: ")
	}
	head.WriteString(f.help)

	out := textWrap(head.String(), width, prefix+"  ", prefix)
	if def := f.quotedDefault(); def != "" {
		out += "\n" + textWrap("(default: "+def+")", width, prefix+"  ", prefix+"  ")
	}
	if syntax := f.codec.syntacticHelp(); syntax != "" && len(enum) == 0 {
		out += "\n" + textWrap("("+syntax+")", width, prefix+"  ", prefix+"  ")
	}
	if f.Multi() {
		out += "\n" + textWrap("(repeat this option to specify a list of values)", width, prefix+"  ", prefix+"  ")
	}
	if len(f.aliases) > 0 {
		out += "\n" + textWrap("(aliases: "+strings.Join(f.aliases, ", ")+")", width, prefix+"  ", prefix+"  ")
	}
	return out
}

// renderFlagList renders flags sorted by name, skipping flags whose name
// is now bound to a different flag.
func (fv *FlagValues) renderFlagList(flags []*Flag, prefix string, width int) []string {
	sorted := append([]*Flag(nil), flags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
	seen := make(map[*Flag]bool)
	var out []string
	for _, f := range sorted {
		if fv.flags[f.name] != f || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, fv.renderFlag(f, prefix, width))
	}
	return out
}

func (fv *FlagValues) sortedModules() []string {
	var modules []string
	for module, list := range fv.flagsByModule {
		if len(list) > 0 && module != MainModule {
			modules = append(modules, module)
		}
	}
	sort.Strings(modules)
	if len(fv.flagsByModule[MainModule]) > 0 {
		modules = append([]string{MainModule}, modules...)
	}
	return modules
}

func (fv *FlagValues) specialFlagsHelp(prefix string, width int) []string {
	return []string{
		textWrap("--flagfile: Insert flag definitions from the given file into the command line.", width, prefix+"  ", prefix),
		textWrap("(default: '')", width, prefix+"  ", prefix+"  "),
		textWrap("--undefok: comma-separated list of flag names that it is okay to specify on the command line even if the program does not define a flag with that name.", width, prefix+"  ", prefix),
		textWrap("(default: '')", width, prefix+"  ", prefix+"  "),
	}
}

// Help renders every flag grouped by module, the main package first,
// followed by the built-in flagfile and undefok flags.
func (fv *FlagValues) Help() string {
	width := fv.helpWidth()
	var lines []string
	if fv.config.Usage != "" {
		lines = append(lines, textWrap(fv.config.Usage, width, "", ""), "")
	}
	lines = append(lines, "flags:")
	for _, module := range fv.sortedModules() {
		lines = append(lines, "", module+":")
		lines = append(lines, fv.renderFlagList(fv.flagsByModule[module], "  ", width)...)
	}
	lines = append(lines, "", "janus:")
	lines = append(lines, fv.specialFlagsHelp("  ", width)...)
	return strings.Join(lines, "\n") + "\n"
}

// HelpShort renders only the key flags of the main package.
func (fv *FlagValues) HelpShort() string {
	return fv.ModuleHelp(MainModule)
}

// ModuleHelp renders the key flags of module, or "" when it has none.
func (fv *FlagValues) ModuleHelp(module string) string {
	flags := fv.KeyFlagsForModule(module)
	if len(flags) == 0 {
		return ""
	}
	width := fv.helpWidth()
	lines := append([]string{module + ":"}, fv.renderFlagList(flags, "  ", width)...)
	return strings.Join(lines, "\n") + "\n"
}

// FlagMetadata is the machine-readable description of one flag.
type FlagMetadata struct {
	Name       string   `yaml:"name" xml:"name"`
	ShortName  string   `yaml:"short_name,omitempty" xml:"short_name,omitempty"`
	Module     string   `yaml:"module" xml:"file"`
	Key        bool     `yaml:"key" xml:"-"`
	Type       string   `yaml:"type" xml:"type"`
	Help       string   `yaml:"help" xml:"meaning"`
	Default    string   `yaml:"default" xml:"default"`
	Current    string   `yaml:"current" xml:"current"`
	Boolean    bool     `yaml:"boolean,omitempty" xml:"-"`
	Multi      bool     `yaml:"multi,omitempty" xml:"-"`
	EnumValues []string `yaml:"enum_values,omitempty" xml:"enum_value,omitempty"`
	Aliases    []string `yaml:"aliases,omitempty" xml:"-"`
	Syntax     string   `yaml:"syntax,omitempty" xml:"-"`
}

func (fv *FlagValues) metadata(f *Flag, key bool) FlagMetadata {
	current := ""
	if f.value != nil {
		current = f.valueAsString()
	}
	return FlagMetadata{
		Name:       f.name,
		ShortName:  f.shortName,
		Module:     fv.FindModuleDefiningFlag(f.name),
		Key:        key,
		Type:       f.Type(),
		Help:       f.help,
		Default:    f.DefaultAsString(),
		Current:    current,
		Boolean:    f.Boolean(),
		Multi:      f.Multi(),
		EnumValues: f.EnumValues(),
		Aliases:    f.Aliases(),
		Syntax:     f.codec.syntacticHelp(),
	}
}

// Metadata describes every flag; key marks the key flags of the main package.
func (fv *FlagValues) Metadata() []FlagMetadata {
	key := make(map[*Flag]bool)
	for _, f := range fv.KeyFlagsForModule(MainModule) {
		key[f] = true
	}
	var out []FlagMetadata
	for _, module := range fv.sortedModules() {
		flags := append([]*Flag(nil), fv.flagsByModule[module]...)
		sort.Slice(flags, func(i, j int) bool { return flags[i].name < flags[j].name })
		for _, f := range flags {
			if fv.flags[f.name] == f {
				out = append(out, fv.metadata(f, key[f]))
			}
		}
	}
	return out
}

// HelpYAML dumps Metadata as a YAML document.
func (fv *FlagValues) HelpYAML() (string, error) {
	doc := struct {
		Program string         `yaml:"program"`
		Usage   string         `yaml:"usage,omitempty"`
		Flags   []FlagMetadata `yaml:"flags"`
	}{
		Program: fv.config.Name,
		Usage:   fv.config.Usage,
		Flags:   fv.Metadata(),
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type xmlFlag struct {
	XMLName xml.Name `xml:"flag"`
	Key     string   `xml:"key,omitempty"`
	FlagMetadata
}

type xmlHelp struct {
	XMLName xml.Name  `xml:"AllFlags"`
	Program string    `xml:"program"`
	Usage   string    `xml:"usage"`
	Flags   []xmlFlag `xml:"flag"`
}

// WriteHelpXML writes every flag as an XML element tree.
func (fv *FlagValues) WriteHelpXML(w io.Writer) error {
	doc := xmlHelp{Program: fv.config.Name, Usage: fv.config.Usage}
	for _, meta := range fv.Metadata() {
		entry := xmlFlag{FlagMetadata: meta}
		if meta.Key {
			entry.Key = "yes"
		}
		doc.Flags = append(doc.Flags, entry)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
