// Package serial converts folio documents to and from persistable forms.
//
// The portable form is a JSON tree compatible with tiptap/ProseMirror
// documents:
//
//	{"type":"doc","content":[
//	  {"type":"callout","attrs":{"type":"info","color":""},"content":[
//	    {"type":"paragraph","content":[{"type":"text","text":"Hello"}]}]}]}
//
// FromPortable(ToPortable(d)) is structurally equal to d for every
// schema-valid document. Both directions fail with UnknownNodeTypeError
// when a node or mark type is not in the registry, so schema drift never
// drops content silently.
//
// The HTML codec renders documents for publishing and imports pasted or
// legacy HTML after sanitizing it. HTML is not lossless: attributes
// without an HTML representation fall back to data-* attributes.
package serial
