package dtb

import "strings"

// LookupNode resolves a '/'-separated path such as "/soc/uart@10000000" to
// the node it names, walking the child chain by name component starting
// from root. An empty path or "/" returns root itself. A component that
// carries no '@' matches any child whose name has a unit-address suffix
// stripped (so "uart" matches a node named "uart@10000000"); unknown
// components return nil rather than an error, since "not found" is a
// normal outcome of a lookup. Aliases are not supported.
func LookupNode(root *Node, path string) *Node {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return root
	}

	curr := root
	for _, component := range strings.Split(path, "/") {
		if component == "" {
			continue
		}
		next := findChild(curr, component)
		if next == nil {
			return nil
		}
		curr = next
	}
	return curr
}

func findChild(parent *Node, component string) *Node {
	hasUnitAddr := strings.ContainsRune(component, '@')
	for child := parent.Children; child != nil; child = child.Sibling {
		if child.Name == component {
			return child
		}
		if !hasUnitAddr && baseName(child.Name) == component {
			return child
		}
	}
	return nil
}

// baseName strips a node name's '@unit-address' suffix, if it has one.
func baseName(nodeName string) string {
	if i := strings.IndexByte(nodeName, '@'); i >= 0 {
		return nodeName[:i]
	}
	return nodeName
}
