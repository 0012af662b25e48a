// Package xmldoc is the host document model used by the language core: a
// best-effort XML element tree where every element, attribute and text run
// carries its exact byte span in the originating source.File.
//
// The scanner never fails. Comments, processing instructions and DOCTYPE
// declarations are skipped, unclosed elements are closed at end of input and
// stray end tags that match no open element are ignored. An end tag cut off
// before its ">" ends the innermost open element at its "<". One malformed
// element does not hide the rest of the document from diagnostics.
package xmldoc
