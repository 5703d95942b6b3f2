package reflector

import (
	"reflect"
	"strings"
)

const tagName = "jsapi"

// tagMembers reads `jsapi:"name,opts..."` field tags. Options are writable,
// static, entry and events. A tag of "-" hides the field; fields already
// declared in spec are skipped.
func tagMembers(st reflect.Type, spec *ClassSpec) []MemberSpec {
	var out []MemberSpec
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup(tagName)
		if !ok || tag == "-" || spec.declares(f.Name) {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		m := MemberSpec{Kind: Property, Go: f.Name, Name: name}
		for _, opt := range strings.Split(opts, ",") {
			switch strings.TrimSpace(opt) {
			case "writable":
				m.Writable = true
			case "static":
				m.Static = true
			case "entry":
				m.EntryPoint = true
			case "events":
				m.Kind = Events
			}
		}
		out = append(out, m)
	}
	return out
}
