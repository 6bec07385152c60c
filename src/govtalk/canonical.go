package govtalk

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/beevik/etree"
)

// canonicalize serializes the element per inclusive Canonical XML 1.0 without
// comments: UTF-8, no XML declaration, start/end tag pairs, namespace
// declarations emitted where they change, attributes in canonical order.
// Namespace declarations inherited from ancestors are rendered on the apex
// element so a subtree digests the same regardless of its enclosing document.
func canonicalize(el *etree.Element) ([]byte, error) {
	inherited := ancestorNamespaces(el)
	var buf bytes.Buffer
	if err := writeCanonical(&buf, el, map[string]string{}, inherited); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ancestorNamespaces collects the namespace declarations in scope at el from
// its ancestors, nearest declaration winning.
func ancestorNamespaces(el *etree.Element) map[string]string {
	var chain []*etree.Element
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.Tag == "" {
			continue // document node
		}
		chain = append(chain, p)
	}
	scope := make(map[string]string)
	for i := len(chain) - 1; i >= 0; i-- {
		applyNamespaceDecls(chain[i], scope)
	}
	return scope
}

func applyNamespaceDecls(el *etree.Element, scope map[string]string) {
	for _, a := range el.Attr {
		switch {
		case a.Space == "xmlns":
			scope[a.Key] = a.Value
		case a.Space == "" && a.Key == "xmlns":
			scope[""] = a.Value
		}
	}
}

func writeCanonical(buf *bytes.Buffer, el *etree.Element, outputCtx, extraDecls map[string]string) error {
	declared := make(map[string]string, len(extraDecls)+2)
	for p, uri := range extraDecls {
		declared[p] = uri
	}
	applyNamespaceDecls(el, declared)

	scope := make(map[string]string, len(outputCtx)+len(declared))
	for p, uri := range outputCtx {
		scope[p] = uri
	}
	for p, uri := range declared {
		scope[p] = uri
	}

	// Only declarations that change the in-force binding are rendered.
	toRender := make([]string, 0, len(declared))
	for p, uri := range declared {
		inForce, ok := outputCtx[p]
		if ok && inForce == uri {
			continue
		}
		if !ok && p == "" && uri == "" {
			continue // xmlns="" is redundant when no default is in force
		}
		toRender = append(toRender, p)
	}
	sort.Strings(toRender) // default namespace (empty prefix) sorts first

	buf.WriteByte('<')
	buf.WriteString(qualifiedName(el.Space, el.Tag))

	for _, p := range toRender {
		if p == "" {
			buf.WriteString(` xmlns="`)
		} else {
			buf.WriteString(" xmlns:")
			buf.WriteString(p)
			buf.WriteString(`="`)
		}
		escapeAttrValue(buf, declared[p])
		buf.WriteByte('"')
	}

	attrs := regularAttributes(el)
	sortCanonicalAttrs(attrs, scope)
	for _, a := range attrs {
		buf.WriteByte(' ')
		buf.WriteString(qualifiedName(a.Space, a.Key))
		buf.WriteString(`="`)
		escapeAttrValue(buf, a.Value)
		buf.WriteByte('"')
	}
	buf.WriteByte('>')

	for _, child := range el.Child {
		switch c := child.(type) {
		case *etree.Element:
			if err := writeCanonical(buf, c, scope, nil); err != nil {
				return err
			}
		case *etree.CharData:
			escapeText(buf, c.Data)
		case *etree.Comment:
			// canonical form without comments
		case *etree.ProcInst:
			buf.WriteString("<?")
			buf.WriteString(c.Target)
			if c.Inst != "" {
				buf.WriteByte(' ')
				buf.WriteString(c.Inst)
			}
			buf.WriteString("?>")
		case *etree.Directive:
			// DTDs are dropped from the canonical form
		default:
			return fmt.Errorf("unsupported node type %T", child)
		}
	}

	buf.WriteString("</")
	buf.WriteString(qualifiedName(el.Space, el.Tag))
	buf.WriteByte('>')
	return nil
}

func qualifiedName(space, local string) string {
	if space == "" {
		return local
	}
	return space + ":" + local
}

func regularAttributes(el *etree.Element) []etree.Attr {
	attrs := make([]etree.Attr, 0, len(el.Attr))
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		attrs = append(attrs, a)
	}
	return attrs
}

// sortCanonicalAttrs orders attributes by namespace URI then local name.
// Unprefixed attributes carry no namespace and sort first.
func sortCanonicalAttrs(attrs []etree.Attr, scope map[string]string) {
	sort.SliceStable(attrs, func(i, j int) bool {
		iURI := attrNamespaceURI(attrs[i], scope)
		jURI := attrNamespaceURI(attrs[j], scope)
		if iURI != jURI {
			return iURI < jURI
		}
		return attrs[i].Key < attrs[j].Key
	})
}

func attrNamespaceURI(a etree.Attr, scope map[string]string) string {
	if a.Space == "" {
		return ""
	}
	if uri, ok := scope[a.Space]; ok {
		return uri
	}
	return a.Space
}

// escapeText writes character data with the canonical-form replacements.
func escapeText(buf *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '\r':
			buf.WriteString("&#xD;")
		default:
			buf.WriteByte(s[i])
		}
	}
}

// escapeAttrValue writes an attribute value with the canonical-form replacements.
func escapeAttrValue(buf *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '"':
			buf.WriteString("&quot;")
		case '\t':
			buf.WriteString("&#x9;")
		case '\n':
			buf.WriteString("&#xA;")
		case '\r':
			buf.WriteString("&#xD;")
		default:
			buf.WriteByte(s[i])
		}
	}
}
