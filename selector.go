package vulpo

import "fmt"

// By is a selector strategy resolved by the extension. The core only
// transports it.
type By struct {
	Strategy string `json:"strategy"`
	Value    string `json:"value"`
}

func (b By) String() string { return fmt.Sprintf("%s(%s)", b.Strategy, b.Value) }

// ByCSS matches elements with a CSS selector.
func ByCSS(selector string) By { return By{Strategy: "css", Value: selector} }

// ByID is shorthand for ByCSS("#id").
func ByID(id string) By { return ByCSS("#" + id) }

// ByXPath matches elements with an XPath expression.
func ByXPath(expr string) By { return By{Strategy: "xpath", Value: expr} }

// ByText matches elements whose text content equals text exactly.
func ByText(text string) By { return By{Strategy: "text", Value: text} }

// ByPartialText matches elements whose text content contains text.
func ByPartialText(text string) By { return By{Strategy: "partialText", Value: text} }

// ByTag matches elements by tag name.
func ByTag(tag string) By { return By{Strategy: "tag", Value: tag} }

// ByName matches elements by their name attribute.
func ByName(name string) By { return By{Strategy: "name", Value: name} }

// ByClass matches elements carrying the given class.
func ByClass(class string) By { return By{Strategy: "class", Value: class} }

func (b By) params() map[string]any {
	return map[string]any{"strategy": b.Strategy, "value": b.Value}
}
