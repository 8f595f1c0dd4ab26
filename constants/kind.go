package constants

import (
	"fmt"
	"strings"
)

// DocumentKind selects the target schema a document is extracted into.
type DocumentKind string

const (
	KindMaterial DocumentKind = "material"
	KindProduct  DocumentKind = "producto"
	KindTool     DocumentKind = "herramienta"
	KindOrder    DocumentKind = "orden"
)

var allKinds = []DocumentKind{KindMaterial, KindProduct, KindTool, KindOrder}

// Kinds returns every supported document kind.
func Kinds() []DocumentKind {
	out := make([]DocumentKind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind accepts the canonical names plus a few english/plural aliases.
func ParseKind(s string) (DocumentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "material", "materiales", "materials":
		return KindMaterial, nil
	case "producto", "productos", "product", "products":
		return KindProduct, nil
	case "herramienta", "herramientas", "tool", "tools":
		return KindTool, nil
	case "orden", "ordenes", "order", "orders", "orden_compra", "produccion":
		return KindOrder, nil
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// Accepted rasterization resolutions.
const (
	MinRenderDPI = 300
	MaxRenderDPI = 400
)

// RenderDPI is the rasterization resolution used for a kind. Orders carry
// small size/quantity tokens and are rendered finer.
func (k DocumentKind) RenderDPI() int {
	if k == KindOrder {
		return MaxRenderDPI
	}
	return MinRenderDPI
}
