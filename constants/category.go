package constants

import (
	"strings"
)

type Category string

// Material categories.
const (
	Cuero     Category = "Cuero"
	Textil    Category = "Textil"
	Hilo      Category = "Hilo"
	Adhesivo  Category = "Adhesivo"
	Suela     Category = "Suela"
	Hebilla   Category = "Hebilla"
	Ornamento Category = "Ornamento"
	Plantilla Category = "Plantilla"
	Otros     Category = "Otros"
)

// Product categories.
const (
	ZapatosHombre     Category = "Zapatos de hombre"
	ZapatosMujer      Category = "Zapatos de mujer"
	ZapatosInfantiles Category = "Zapatos infantiles"
	Botas             Category = "Botas"
	Sandalias         Category = "Sandalias"
	CalzadoDeportivo  Category = "Calzado deportivo"
	CalzadoFormal     Category = "Calzado formal"
	CalzadoTrabajo    Category = "Calzado de trabajo"
	Accesorios        Category = "Accesorios"
)

// Tool states (the "estado" field of a tool record).
const (
	EstadoNuevo           Category = "Nuevo"
	EstadoExcelente       Category = "Excelente"
	EstadoBueno           Category = "Bueno"
	EstadoRegular         Category = "Regular"
	EstadoNecesitaRepar   Category = "Necesita reparación"
	EstadoFueraDeServicio Category = "Fuera de servicio"
)

var materialCategories = []Category{Cuero, Textil, Hilo, Adhesivo, Suela, Hebilla, Ornamento, Plantilla, Otros}

var productCategories = []Category{
	ZapatosHombre,
	ZapatosMujer,
	ZapatosInfantiles,
	Botas,
	Sandalias,
	CalzadoDeportivo,
	CalzadoFormal,
	CalzadoTrabajo,
	Accesorios,
}

var toolStates = []Category{
	EstadoNuevo,
	EstadoExcelente,
	EstadoBueno,
	EstadoRegular,
	EstadoNecesitaRepar,
	EstadoFueraDeServicio,
}

// AllowedValues returns the enumerated values of the kind's category-like
// field (categoria for materials/products, estado for tools). Orders have none.
func AllowedValues(kind DocumentKind) []string {
	var src []Category
	switch kind {
	case KindMaterial:
		src = materialCategories
	case KindProduct:
		src = productCategories
	case KindTool:
		src = toolStates
	default:
		return nil
	}
	out := make([]string, len(src))
	for i, c := range src {
		out[i] = string(c)
	}
	return out
}

// synonyms maps loose spellings seen in scans and model output to the canonical value.
var synonyms = map[string]Category{
	"piel":                Cuero,
	"leather":             Cuero,
	"tela":                Textil,
	"textile":             Textil,
	"thread":              Hilo,
	"pegante":             Adhesivo,
	"pegamento":           Adhesivo,
	"cola":                Adhesivo,
	"glue":                Adhesivo,
	"suelas":              Suela,
	"sole":                Suela,
	"hebillas":            Hebilla,
	"buckle":              Hebilla,
	"adorno":              Ornamento,
	"plantillas":          Plantilla,
	"insole":              Plantilla,
	"otro":                Otros,
	"other":               Otros,
	"deportivo":           CalzadoDeportivo,
	"tenis":               CalzadoDeportivo,
	"formal":              CalzadoFormal,
	"bota":                Botas,
	"sandalia":            Sandalias,
	"accesorio":           Accesorios,
	"nueva":               EstadoNuevo,
	"new":                 EstadoNuevo,
	"buena":               EstadoBueno,
	"good":                EstadoBueno,
	"necesita reparacion": EstadoNecesitaRepar,
	"en reparacion":       EstadoNecesitaRepar,
	"dañado":              EstadoNecesitaRepar,
	"fuera de servicio":   EstadoFueraDeServicio,
	"averiado":            EstadoFueraDeServicio,
}

// Canonicalize maps input onto the kind's enumeration. It returns ("", false)
// when nothing matches; callers keep the empty value rather than guessing.
func Canonicalize(kind DocumentKind, input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	allowed := AllowedValues(kind)
	for _, a := range allowed {
		if normalized == strings.ToLower(a) {
			return Category(a), true
		}
	}

	if cat, ok := synonyms[normalized]; ok {
		for _, a := range allowed {
			if string(cat) == a {
				return cat, true
			}
		}
	}
	return "", false
}
