package record

import "github.com/thereallexluttor/AaaS-Zapateria/constants"

// Record is a schema-complete, normalized extraction result.
type Record interface {
	Kind() constants.DocumentKind
	// Identity is the never-empty identity field (nombre, or the order number).
	Identity() string
	// Map renders exactly the schema's fields.
	Map() map[string]any
}

type Material struct {
	Nombre           string `json:"nombre"`
	Referencia       string `json:"referencia"`
	Unidades         string `json:"unidades"`
	Stock            string `json:"stock"`
	StockMinimo      string `json:"stockMinimo"`
	Precio           string `json:"precio"`
	Categoria        string `json:"categoria"`
	Proveedor        string `json:"proveedor"`
	Descripcion      string `json:"descripcion"`
	FechaAdquisicion string `json:"fechaAdquisicion"`
	Ubicacion        string `json:"ubicacion"`
}

func (Material) Kind() constants.DocumentKind { return constants.KindMaterial }
func (r Material) Identity() string           { return r.Nombre }

func (r Material) Map() map[string]any {
	return map[string]any{
		"nombre":           r.Nombre,
		"referencia":       r.Referencia,
		"unidades":         r.Unidades,
		"stock":            r.Stock,
		"stockMinimo":      r.StockMinimo,
		"precio":           r.Precio,
		"categoria":        r.Categoria,
		"proveedor":        r.Proveedor,
		"descripcion":      r.Descripcion,
		"fechaAdquisicion": r.FechaAdquisicion,
		"ubicacion":        r.Ubicacion,
	}
}

type Product struct {
	Nombre            string `json:"nombre"`
	Precio            string `json:"precio"`
	Stock             string `json:"stock"`
	StockMinimo       string `json:"stockMinimo"`
	Categoria         string `json:"categoria"`
	Descripcion       string `json:"descripcion"`
	Tallas            string `json:"tallas"`
	Colores           string `json:"colores"`
	TiempoFabricacion string `json:"tiempoFabricacion"`
	Destacado         bool   `json:"destacado"`
}

func (Product) Kind() constants.DocumentKind { return constants.KindProduct }
func (r Product) Identity() string           { return r.Nombre }

func (r Product) Map() map[string]any {
	return map[string]any{
		"nombre":            r.Nombre,
		"precio":            r.Precio,
		"stock":             r.Stock,
		"stockMinimo":       r.StockMinimo,
		"categoria":         r.Categoria,
		"descripcion":       r.Descripcion,
		"tallas":            r.Tallas,
		"colores":           r.Colores,
		"tiempoFabricacion": r.TiempoFabricacion,
		"destacado":         r.Destacado,
	}
}

type Tool struct {
	Nombre               string `json:"nombre"`
	Modelo               string `json:"modelo"`
	NumeroSerie          string `json:"numeroSerie"`
	Estado               string `json:"estado"`
	FechaAdquisicion     string `json:"fechaAdquisicion"`
	UltimoMantenimiento  string `json:"ultimoMantenimiento"`
	ProximoMantenimiento string `json:"proximoMantenimiento"`
	Ubicacion            string `json:"ubicacion"`
	Responsable          string `json:"responsable"`
	Descripcion          string `json:"descripcion"`
}

func (Tool) Kind() constants.DocumentKind { return constants.KindTool }
func (r Tool) Identity() string           { return r.Nombre }

func (r Tool) Map() map[string]any {
	return map[string]any{
		"nombre":               r.Nombre,
		"modelo":               r.Modelo,
		"numeroSerie":          r.NumeroSerie,
		"estado":               r.Estado,
		"fechaAdquisicion":     r.FechaAdquisicion,
		"ultimoMantenimiento":  r.UltimoMantenimiento,
		"proximoMantenimiento": r.ProximoMantenimiento,
		"ubicacion":            r.Ubicacion,
		"responsable":          r.Responsable,
		"descripcion":          r.Descripcion,
	}
}

// Order is a purchase order: header plus one line per (product, size).
type Order struct {
	OrdenCompra Header     `json:"ordenCompra"`
	Productos   []LineItem `json:"productos"`
	Error       string     `json:"error,omitempty"`
}

type Header struct {
	NumeroOrden string  `json:"numeroOrden"`
	Fecha       string  `json:"fecha"`
	Cliente     string  `json:"cliente"`
	Total       float64 `json:"total"`
}

type LineItem struct {
	Nombre     string   `json:"nombre"`
	IDSupabase *int64   `json:"id_supabase"`
	Talla      string   `json:"talla"`
	Cantidad   int      `json:"cantidad"`
	Materiales []string `json:"materiales"`
}

func (Order) Kind() constants.DocumentKind { return constants.KindOrder }
func (r Order) Identity() string           { return r.OrdenCompra.NumeroOrden }

func (r Order) Map() map[string]any {
	items := make([]any, 0, len(r.Productos))
	for _, it := range r.Productos {
		items = append(items, it.Map())
	}
	out := map[string]any{
		"ordenCompra": map[string]any{
			"numeroOrden": r.OrdenCompra.NumeroOrden,
			"fecha":       r.OrdenCompra.Fecha,
			"cliente":     r.OrdenCompra.Cliente,
			"total":       r.OrdenCompra.Total,
		},
		"productos": items,
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	return out
}

func (it LineItem) Map() map[string]any {
	var id any
	if it.IDSupabase != nil {
		id = *it.IDSupabase
	}
	mats := make([]string, len(it.Materiales))
	copy(mats, it.Materiales)
	return map[string]any{
		"nombre":      it.Nombre,
		"id_supabase": id,
		"talla":       it.Talla,
		"cantidad":    it.Cantidad,
		"materiales":  mats,
	}
}

// ID returns the catalog id, or 0 when the line carries none.
func (it LineItem) ID() int64 {
	if it.IDSupabase == nil {
		return 0
	}
	return *it.IDSupabase
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
