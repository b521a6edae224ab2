package webgpu

import (
	"fmt"
	"slices"
	"strings"
)

// BuildOptions is an ordered set of program options of the form -DNAME or
// -DNAME=VALUE. Options are rendered into WGSL module-scope constants that
// are prepended to the program source.
type BuildOptions struct {
	opts []string
}

// Add appends option unless it is already present. It panics if option is
// not of the form -DNAME or -DNAME=VALUE.
func (b *BuildOptions) Add(option string) {
	if _, _, err := parseOption(option); err != nil {
		panic(fmt.Sprintf("build options: %v", err))
	}
	if !slices.Contains(b.opts, option) {
		b.opts = append(b.opts, option)
	}
}

// AddIf appends option when cond is true.
func (b *BuildOptions) AddIf(cond bool, option string) {
	if cond {
		b.Add(option)
	}
}

// Define appends -DNAME=VALUE with value formatted by fmt.
func (b *BuildOptions) Define(name string, value any) {
	b.Add(fmt.Sprintf("-D%s=%v", name, value))
}

// Options returns a copy of the options in insertion order.
func (b BuildOptions) Options() []string {
	return slices.Clone(b.opts)
}

// Key identifies program name compiled with these options. Options are
// sorted so that the insertion order does not matter.
func (b BuildOptions) Key(name string) string {
	sorted := slices.Clone(b.opts)
	slices.Sort(sorted)
	return strings.Join(append([]string{name}, sorted...), " ")
}

// WGSL renders the options as constant declarations. An option without a
// value becomes a boolean constant set to true.
func (b BuildOptions) WGSL() string {
	var sb strings.Builder
	for _, opt := range b.opts {
		name, value, _ := parseOption(opt)
		if value == "" {
			value = "true"
		}
		fmt.Fprintf(&sb, "const %s = %s;\n", name, value)
	}
	return sb.String()
}

// Source returns src prefixed with the rendered options.
func (b BuildOptions) Source(src string) string {
	return b.WGSL() + src
}

func parseOption(opt string) (name, value string, err error) {
	rest, ok := strings.CutPrefix(opt, "-D")
	if !ok {
		return "", "", fmt.Errorf("option %q must start with -D", opt)
	}
	name, value, _ = strings.Cut(rest, "=")
	if !isIdentifier(name) {
		return "", "", fmt.Errorf("option %q: invalid name %q", opt, name)
	}
	return name, value, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
