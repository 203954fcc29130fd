package domain

import (
	"encoding/json"
	"fmt"
)

type HeadingFormat string

const (
	H6 HeadingFormat = "h6"
	H5 HeadingFormat = "h5"
	H4 HeadingFormat = "h4"
	H3 HeadingFormat = "h3"
	H2 HeadingFormat = "h2"
	H1 HeadingFormat = "h1"
)

func (f *HeadingFormat) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, (*string)(f), "heading format", string(H1), string(H2), string(H3), string(H4), string(H5), string(H6))
}

type LinkStyle string

const (
	LinkPrimary   LinkStyle = "primary"
	LinkSecondary LinkStyle = "secondary"
	LinkContrast  LinkStyle = "contrast"
)

func (s *LinkStyle) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, (*string)(s), "link style", string(LinkPrimary), string(LinkSecondary), string(LinkContrast))
}

type ButtonStyle string

const (
	ButtonPrimary   ButtonStyle = "primary"
	ButtonSecondary ButtonStyle = "secondary"
	ButtonContrast  ButtonStyle = "contrast"
	ButtonOutline   ButtonStyle = "outline"
)

func (s *ButtonStyle) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, (*string)(s), "button style", string(ButtonPrimary), string(ButtonSecondary), string(ButtonContrast), string(ButtonOutline))
}

// NumberFormat is a rendering hint; the core never transforms the number.
type NumberFormat string

const (
	FormatF64        NumberFormat = "f64"
	FormatPercentage NumberFormat = "percentage"
)

func (f *NumberFormat) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, (*string)(f), "number format", string(FormatF64), string(FormatPercentage))
}

type InlineStyle string

const (
	Unstyled      InlineStyle = "unstyled"
	Bold          InlineStyle = "bold"
	Italic        InlineStyle = "italic"
	Underline     InlineStyle = "underline"
	Deleted       InlineStyle = "deleted"
	Inserted      InlineStyle = "inserted"
	StrikeThrough InlineStyle = "strike_through"
	Small         InlineStyle = "small"
	Sub           InlineStyle = "sub"
	Sup           InlineStyle = "sup"
	Abbr          InlineStyle = "abbr"
	Kbd           InlineStyle = "kbd"
	Highlighted   InlineStyle = "highlighted"
)

// inlineStyleTags must list every InlineStyle; a new style needs its element here.
var inlineStyleTags = map[InlineStyle]string{
	Unstyled:      "text",
	Bold:          "strong",
	Italic:        "em",
	Underline:     "u",
	Deleted:       "del",
	Inserted:      "ins",
	StrikeThrough: "s",
	Small:         "small",
	Sub:           "sub",
	Sup:           "sup",
	Abbr:          "abbr",
	Kbd:           "kbd",
	Highlighted:   "mark",
}

// InlineStyles lists every style variant in declaration order.
func InlineStyles() []InlineStyle {
	return []InlineStyle{Unstyled, Bold, Italic, Underline, Deleted, Inserted, StrikeThrough, Small, Sub, Sup, Abbr, Kbd, Highlighted}
}

// Tag returns the markup element the style renders as.
func (s InlineStyle) Tag() string {
	return inlineStyleTags[s]
}

func (s *InlineStyle) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: inline style: %v", ErrMalformedMessage, err)
	}
	if _, ok := inlineStyleTags[InlineStyle(raw)]; !ok {
		return fmt.Errorf("%w: unknown inline style %q", ErrMalformedMessage, raw)
	}
	*s = InlineStyle(raw)
	return nil
}

func decodeEnum(data []byte, target *string, name string, allowed ...string) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedMessage, name, err)
	}
	for _, candidate := range allowed {
		if raw == candidate {
			*target = raw
			return nil
		}
	}
	return fmt.Errorf("%w: unknown %s %q", ErrMalformedMessage, name, raw)
}
