// Package preset provides the museum-portal document schema.
package preset

import "github.com/dshills/folio/internal/engine/schema"

// Node type names.
const (
	Doc               = schema.TopNodeName
	Text              = "text"
	HardBreak         = "hardBreak"
	Paragraph         = "paragraph"
	Heading           = "heading"
	Blockquote        = "blockquote"
	BulletList        = "bulletList"
	OrderedList       = "orderedList"
	ListItem          = "listItem"
	CodeBlock         = "codeBlock"
	Image             = "image"
	Video             = "video"
	HorizontalRule    = "horizontalRule"
	Callout           = "callout"
	Card              = "card"
	CardHeader        = "cardHeader"
	CardContent       = "cardContent"
	Gallery           = "gallery"
	Columns           = "columns"
	Column            = "column"
	CustomPage        = "customPage"
	UploadPlaceholder = "uploadPlaceholder"
)

// Mark type names.
const (
	Bold      = "bold"
	Italic    = "italic"
	Underline = "underline"
	Strike    = "strike"
	Code      = "code"
	Link      = "link"
	TextStyle = "textStyle"
	Highlight = "highlight"
)

// CalloutTypes are the accepted values of the callout "type" attribute.
var CalloutTypes = []string{"info", "warning", "success", "error", "note"}

// PageStyleAttrs are the customPage attributes edited by set-page-style.
var PageStyleAttrs = []string{"height", "width", "padding", "margin"}

// Upload placeholder states.
const (
	UploadUploading = "uploading"
	UploadFailed    = "failed"
)

func textAlign() schema.AttributeSpec {
	return schema.AttributeSpec{Default: "left", Validate: schema.OneOf("left", "center", "right", "justify")}
}

func length() schema.AttributeSpec {
	return schema.AttributeSpec{Default: "", Validate: schema.CSSLength}
}

func color() schema.AttributeSpec {
	return schema.AttributeSpec{Default: "", Validate: schema.HexColor}
}

func str() schema.AttributeSpec {
	return schema.AttributeSpec{Default: "", Validate: schema.IsString}
}

// NodeSpecs returns the museum node types in registration order.
func NodeSpecs() []schema.NodeSpec {
	return []schema.NodeSpec{
		{Name: Text, Group: "inline", Text: true},
		{Name: HardBreak, Group: "inline", Inline: true},
		{Name: Paragraph, Content: "inline*", Group: "block", Attrs: map[string]schema.AttributeSpec{
			"textAlign": textAlign(),
		}},
		{Name: Heading, Content: "inline*", Group: "block", Defining: true, Attrs: map[string]schema.AttributeSpec{
			"level":     {Default: 1, Validate: schema.IntRange(1, 6)},
			"textAlign": textAlign(),
		}},
		{Name: Blockquote, Content: "block+", Group: "block", Defining: true},
		{Name: ListItem, Content: "paragraph block*", Defining: true},
		{Name: BulletList, Content: "listItem+", Group: "block list"},
		{Name: OrderedList, Content: "listItem+", Group: "block list", Attrs: map[string]schema.AttributeSpec{
			"start": {Default: 1, Validate: schema.IntRange(1, 1<<20)},
		}},
		{Name: CodeBlock, Content: "text*", Group: "block", NoMarks: true, Defining: true, Attrs: map[string]schema.AttributeSpec{
			"language": str(),
		}},
		{Name: Image, Group: "block media", Atom: true, Attrs: map[string]schema.AttributeSpec{
			"src":   {Required: true, Validate: schema.NonEmpty},
			"alt":   str(),
			"title": str(),
			"width": length(),
		}},
		{Name: Video, Group: "block media", Atom: true, Attrs: map[string]schema.AttributeSpec{
			"src":      {Required: true, Validate: schema.NonEmpty},
			"provider": {Default: "file", Validate: schema.OneOf("file", "youtube", "vimeo")},
			"title":    str(),
		}},
		{Name: HorizontalRule, Group: "block"},
		{Name: Callout, Content: "paragraph+", Group: "block", Defining: true, Attrs: map[string]schema.AttributeSpec{
			"type":  {Default: "info", Validate: schema.OneOf(CalloutTypes...)},
			"color": color(),
		}},
		{Name: CardHeader, Content: "inline*", Marks: []string{Bold, Italic, Link}},
		{Name: CardContent, Content: "block+"},
		{Name: Card, Content: "cardHeader cardContent", Group: "block", Isolating: true, Attrs: map[string]schema.AttributeSpec{
			"variant": {Default: "default", Validate: schema.OneOf("default", "outlined", "filled")},
		}},
		{Name: Gallery, Content: "image+", Group: "block", Isolating: true, Attrs: map[string]schema.AttributeSpec{
			"columns": {Default: 3, Validate: schema.IntRange(1, 6)},
		}},
		{Name: Column, Content: "block+", Isolating: true},
		{Name: Columns, Content: "column{2,4}", Group: "block", Attrs: map[string]schema.AttributeSpec{
			"gap": length(),
		}},
		{Name: CustomPage, Content: "block+", Group: "block", Isolating: true, Defining: true, Attrs: map[string]schema.AttributeSpec{
			"height":     length(),
			"width":      length(),
			"padding":    length(),
			"margin":     length(),
			"background": color(),
		}},
		{Name: UploadPlaceholder, Group: "block", Atom: true, Attrs: map[string]schema.AttributeSpec{
			"uploadId": {Required: true, Validate: schema.NonEmpty},
			"kind":     {Default: "image", Validate: schema.OneOf("image", "video", "file")},
			"fileName": str(),
			"status":   {Default: UploadUploading, Validate: schema.OneOf(UploadUploading, UploadFailed)},
			"error":    str(),
		}},
		{Name: Doc, Content: "block+"},
	}
}

// MarkSpecs returns the museum mark types in rank order.
func MarkSpecs() []schema.MarkSpec {
	return []schema.MarkSpec{
		{Name: Link, Attrs: map[string]schema.AttributeSpec{
			"href":   {Required: true, Validate: schema.NonEmpty},
			"target": {Default: "", Validate: schema.OneOf("", "_blank", "_self")},
		}},
		{Name: Bold},
		{Name: Italic},
		{Name: Underline},
		{Name: Strike},
		{Name: Code},
		{Name: TextStyle, Attrs: map[string]schema.AttributeSpec{"color": color()}},
		{Name: Highlight, Attrs: map[string]schema.AttributeSpec{"color": color()}},
	}
}

// NewMuseumSchema builds and finalizes the museum schema.
func NewMuseumSchema() (*schema.Registry, error) {
	r := schema.NewRegistry()
	for _, spec := range MarkSpecs() {
		if _, err := r.RegisterMark(spec); err != nil {
			return nil, err
		}
	}
	for _, spec := range NodeSpecs() {
		if _, err := r.Register(spec); err != nil {
			return nil, err
		}
	}
	if err := r.Finalize(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustMuseumSchema is like NewMuseumSchema but panics on error.
func MustMuseumSchema() *schema.Registry {
	r, err := NewMuseumSchema()
	if err != nil {
		panic(err)
	}
	return r
}
