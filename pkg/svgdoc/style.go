package svgdoc

import "strings"

// StyleValue returns the value of property name in an inline CSS style
// declaration such as "display:none;opacity:0.5".
func StyleValue(style, name string) (string, bool) {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(k) == name {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// SetStyleValue returns style with property name set to value. An existing
// declaration is replaced in place; otherwise the declaration is appended.
// Other declarations keep their order.
func SetStyleValue(style, name, value string) string {
	var decls []string
	replaced := false
	for _, decl := range strings.Split(style, ";") {
		if strings.TrimSpace(decl) == "" {
			continue
		}
		k, _, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) == name {
			if replaced {
				continue
			}
			decl = name + ":" + value
			replaced = true
		}
		decls = append(decls, decl)
	}
	if !replaced {
		decls = append(decls, name+":"+value)
	}
	return strings.Join(decls, ";")
}
