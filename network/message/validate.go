package message

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"google.golang.org/protobuf/reflect/protoreflect"
)

type validator struct {
	opts BuildOptions
	err  SchemaError
}

func (v *validator) add(typ string, rule Rule, format string, args ...any) {
	v.err.Violations = append(v.err.Violations, Violation{
		Type:   typ,
		Rule:   rule,
		Detail: fmt.Sprintf(format, args...),
	})
}

// checkType runs every per-type rule against one top-level message.
func (v *validator) checkType(md protoreflect.MessageDescriptor) {
	name := string(md.Name())
	full := string(md.FullName())

	if !strings.HasPrefix(name, SharedPrefix) && !v.hasKnownSuffix(name) {
		v.add(full, RuleSuffix, "name must end with one of %v or %q",
			v.opts.Suffixes, v.opts.DeprecatedSuffix)
	}

	if ReqTypeOf(name) == MRTRes {
		fd := md.Fields().ByName(StatusField)
		switch {
		case fd == nil:
			v.add(full, RuleStatus, "response has no %q field", StatusField)
		case !isStatusField(fd):
			v.add(full, RuleStatus, "field %q must be a singular signed integer, got %s %s",
				StatusField, fd.Cardinality(), fd.Kind())
		}
	}

	v.checkFieldCase(md)
}

func (v *validator) hasKnownSuffix(name string) bool {
	for _, s := range v.opts.Suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return v.opts.DeprecatedSuffix != "" && strings.HasSuffix(name, v.opts.DeprecatedSuffix)
}

// checkFieldCase walks md and its nested messages. Synthetic map entries only
// carry key and value and are skipped.
func (v *validator) checkFieldCase(md protoreflect.MessageDescriptor) {
	if md.IsMapEntry() {
		return
	}
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fname := string(fields.Get(i).Name())
		if strings.IndexFunc(fname, unicode.IsUpper) >= 0 {
			v.add(string(md.FullName()), RuleFieldCase, "field %q contains an uppercase character", fname)
		}
	}
	nested := md.Messages()
	for i := 0; i < nested.Len(); i++ {
		v.checkFieldCase(nested.Get(i))
	}
}

// checkCollisions reports every id shared by more than one type.
func (v *validator) checkCollisions(byID map[uint32][]*MsgProtoInfo) {
	ids := make([]uint32, 0, len(byID))
	for id, group := range byID {
		if len(group) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		c := Collision{ID: id}
		for _, pi := range byID[id] {
			c.Names = append(c.Names, string(pi.FullName))
		}
		sort.Strings(c.Names)
		v.err.Collisions = append(v.err.Collisions, c)
	}
}

func (v *validator) result() error {
	if v.err.empty() {
		return nil
	}
	e := v.err
	return &e
}
