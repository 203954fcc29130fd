package domain

import (
	"encoding/json"
)

// NodeKind is the wire discriminator of a node, shared by the Ui and Td unions.
type NodeKind string

const (
	KindHeading       NodeKind = "heading"
	KindText          NodeKind = "text"
	KindLink          NodeKind = "link"
	KindNumber        NodeKind = "number"
	KindButton        NodeKind = "button"
	KindBoolButton    NodeKind = "bool_button"
	KindTabs          NodeKind = "tabs"
	KindGrid          NodeKind = "grid"
	KindDiv           NodeKind = "div"
	KindTable         NodeKind = "table"
	KindTableFromData NodeKind = "table_from_data"
	KindForm          NodeKind = "form"
	KindImage         NodeKind = "image"
)

// Node is implemented by every node record.
type Node interface {
	Kind() NodeKind
}

// Ui is the closed union of layout nodes. Only types in this package implement it.
type Ui interface {
	Node
	isUi()
}

// Td is the closed union of nodes allowed inside a data-driven table row. It is a
// sibling of Ui restricted to leaves, not a subtype.
type Td interface {
	Node
	isTd()
}

// Some returns a pointer to v; handy for optional node fields.
func Some[T any](v T) *T { return &v }

type Heading struct {
	Value  *Value[string] `json:"value,omitempty"`
	Format *HeadingFormat `json:"format,omitempty"`
}

type Text struct {
	Value *Value[string] `json:"value,omitempty"`
	Style *InlineStyle   `json:"style,omitempty"`
}

type Link struct {
	Value *Value[string] `json:"value,omitempty"`
	Href  *Value[string] `json:"href,omitempty"`
	Style *LinkStyle     `json:"style,omitempty"`
}

type Image struct {
	Src *Value[string] `json:"src,omitempty"`
}

// Number carries a numeric value plus rendering hints.
type Number struct {
	Value  *Value[json.Number] `json:"value,omitempty"`
	Style  *InlineStyle        `json:"style,omitempty"`
	Format *NumberFormat       `json:"format,omitempty"`
}

type Button struct {
	Value    *Value[string] `json:"value,omitempty"`
	OnClick  *DashboardTx   `json:"on_click,omitempty"`
	Style    *ButtonStyle   `json:"style,omitempty"`
	Disabled *Disabled      `json:"disabled,omitempty"`
}

// ButtonState is one presentation of a button.
type ButtonState struct {
	Value Value[string] `json:"value"`
	Color string        `json:"color"`
}

// DefaultButtonState is an empty label in the secondary color.
func DefaultButtonState() ButtonState {
	return ButtonState{Value: Fixed(""), Color: "var(--secondary)"}
}

// BoolButtonState pairs the presentations shown when the document value is true (On)
// or false (Off).
type BoolButtonState struct {
	On  ButtonState `json:"on"`
	Off ButtonState `json:"off"`
}

func DefaultBoolButtonState() BoolButtonState {
	return BoolButtonState{On: DefaultButtonState(), Off: DefaultButtonState()}
}

// BoolButton is a toggle whose truth value lives in the document at Pointer.
type BoolButton struct {
	Pointer  string           `json:"pointer"`
	State    *BoolButtonState `json:"state,omitempty"`
	OnClick  *DashboardTx     `json:"on_click,omitempty"`
	Disabled *Disabled        `json:"disabled,omitempty"`
}

func NewBoolButton(pointer string, state BoolButtonState) BoolButton {
	return BoolButton{Pointer: pointer, State: &state}
}

type Tab struct {
	Name     string `json:"name"`
	Contents Nodes  `json:"contents"`
}

func NewTab(name string, contents ...Ui) Tab {
	return Tab{Name: name, Contents: contents}
}

type Tabs struct {
	Tabs      []Tab `json:"tabs,omitempty"`
	MaxHeight *int  `json:"max_height,omitempty"`
}

type Grid struct {
	MaxHeight    *int  `json:"max_height,omitempty"`
	MinCellWidth *int  `json:"min_cell_width,omitempty"`
	Gap          *int  `json:"gap,omitempty"`
	Children     Nodes `json:"children,omitempty"`
}

type Div struct {
	Children  Nodes `json:"children,omitempty"`
	MaxHeight *int  `json:"max_height,omitempty"`
}

// Table is a static table; each body row is a list of nodes.
type Table struct {
	Header []string `json:"header,omitempty"`
	Body   []Nodes  `json:"body,omitempty"`
}

// TableFromData renders one row per element of the array at Pointer using RowTemplate.
type TableFromData struct {
	Pointer     string   `json:"pointer"`
	Header      []string `json:"header,omitempty"`
	RowTemplate Cells    `json:"row_template,omitempty"`
}

type Form struct {
	Fields   InputFields  `json:"fields,omitempty"`
	OnSubmit *DashboardTx `json:"on_submit,omitempty"`
}

func (Heading) Kind() NodeKind       { return KindHeading }
func (Text) Kind() NodeKind          { return KindText }
func (Link) Kind() NodeKind          { return KindLink }
func (Number) Kind() NodeKind        { return KindNumber }
func (Button) Kind() NodeKind        { return KindButton }
func (BoolButton) Kind() NodeKind    { return KindBoolButton }
func (Tabs) Kind() NodeKind          { return KindTabs }
func (Grid) Kind() NodeKind          { return KindGrid }
func (Div) Kind() NodeKind           { return KindDiv }
func (Table) Kind() NodeKind         { return KindTable }
func (TableFromData) Kind() NodeKind { return KindTableFromData }
func (Form) Kind() NodeKind          { return KindForm }
func (Image) Kind() NodeKind         { return KindImage }

func (Heading) isUi()       {}
func (Text) isUi()          {}
func (Link) isUi()          {}
func (Number) isUi()        {}
func (Button) isUi()        {}
func (BoolButton) isUi()    {}
func (Tabs) isUi()          {}
func (Grid) isUi()          {}
func (Div) isUi()           {}
func (Table) isUi()         {}
func (TableFromData) isUi() {}
func (Form) isUi()          {}
func (Image) isUi()         {}

func (Heading) isTd()    {}
func (Text) isTd()       {}
func (Link) isTd()       {}
func (Number) isTd()     {}
func (Button) isTd()     {}
func (BoolButton) isTd() {}
func (Image) isTd()      {}

// Ws describes the persistent channel a receiver should open.
type Ws struct {
	Name          string          `json:"name"`
	URL           string          `json:"url"`
	SendOnConnect json.RawMessage `json:"send_on_connect,omitempty"`
}
