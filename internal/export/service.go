// Package export renders extracted records as XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

// Row is one exported document.
type Row struct {
	Source string // file path, or "" for inline text
	Record record.Record
}

// Service produces XLSX bytes. It holds no state besides the logger.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

var orderLineHeaders = []string{"Producto", "ID", "Talla", "Cantidad", "Materiales"}

// OrderXLSX writes one order: the header block and one row per line item on
// "Orden", and a product x size quantity grid on "Tallas".
func (s *Service) OrderXLSX(order record.Order) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Orden"
	if err := useSheet(f, sheet); err != nil {
		return nil, err
	}

	hdr := [][2]any{
		{"Número de orden", order.OrdenCompra.NumeroOrden},
		{"Fecha", order.OrdenCompra.Fecha},
		{"Cliente", order.OrdenCompra.Cliente},
		{"Total", order.OrdenCompra.Total},
	}
	for i, kv := range hdr {
		setRow(f, sheet, i+1, kv[0], kv[1])
	}
	row := len(hdr) + 1
	if order.Error != "" {
		setRow(f, sheet, row, "Error", order.Error)
		row++
	}

	row++
	setRow(f, sheet, row, toAny(orderLineHeaders)...)
	for _, it := range order.Productos {
		row++
		setRow(f, sheet, row, lineValues(it)...)
	}

	_ = f.SetColWidth(sheet, "A", "A", 32)
	_ = f.SetColWidth(sheet, "B", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 40)

	if err := sizeGrid(f, order.Productos); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.order_xlsx.ok",
		"numero_orden", order.OrdenCompra.NumeroOrden,
		"rows", len(order.Productos),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// RecordsXLSX writes one row per record (one per line item for orders),
// with the schema fields as columns and the source path last.
func (s *Service) RecordsXLSX(kind constants.DocumentKind, rows []Row) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(kind)
	if err := useSheet(f, sheet); err != nil {
		return nil, err
	}

	n := 1
	if kind == constants.KindOrder {
		cols := []string{"Número de orden", "Fecha", "Cliente", "Total"}
		cols = append(cols, orderLineHeaders...)
		setRow(f, sheet, n, toAny(append(cols, "Error", "Archivo"))...)
		for _, r := range rows {
			order, ok := r.Record.(record.Order)
			if !ok {
				continue
			}
			head := []any{order.OrdenCompra.NumeroOrden, order.OrdenCompra.Fecha, order.OrdenCompra.Cliente, order.OrdenCompra.Total}
			if len(order.Productos) == 0 {
				n++
				setRow(f, sheet, n, append(head, "", "", "", "", "", order.Error, r.Source)...)
				continue
			}
			for _, it := range order.Productos {
				n++
				vals := append(append([]any{}, head...), lineValues(it)...)
				setRow(f, sheet, n, append(vals, order.Error, r.Source)...)
			}
		}
	} else {
		fields := record.FieldNames(kind)
		setRow(f, sheet, n, toAny(append(append([]string{}, fields...), "archivo"))...)
		for _, r := range rows {
			if r.Record == nil || r.Record.Kind() != kind {
				continue
			}
			m := r.Record.Map()
			vals := make([]any, 0, len(fields)+1)
			for _, name := range fields {
				vals = append(vals, m[name])
			}
			n++
			setRow(f, sheet, n, append(vals, r.Source)...)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.records_xlsx.ok",
		"kind", kind,
		"rows", n-1,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// sizeGrid writes the quantities per product (rows) and size (columns).
func sizeGrid(f *excelize.File, items []record.LineItem) error {
	const sheet = "Tallas"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	var products, sizes []string
	qty := map[[2]string]int{}
	for _, it := range items {
		if _, ok := indexOf(products, it.Nombre); !ok {
			products = append(products, it.Nombre)
		}
		if _, ok := indexOf(sizes, it.Talla); !ok {
			sizes = append(sizes, it.Talla)
		}
		qty[[2]string{it.Nombre, it.Talla}] += it.Cantidad
	}
	sort.Strings(sizes)

	setRow(f, sheet, 1, toAny(append([]string{"Producto"}, sizes...))...)
	for i, p := range products {
		vals := []any{p}
		for _, sz := range sizes {
			if q, ok := qty[[2]string{p, sz}]; ok {
				vals = append(vals, q)
			} else {
				vals = append(vals, "")
			}
		}
		setRow(f, sheet, i+2, vals...)
	}
	_ = f.SetColWidth(sheet, "A", "A", 32)
	return nil
}

func lineValues(it record.LineItem) []any {
	var id any = ""
	if it.IDSupabase != nil {
		id = *it.IDSupabase
	}
	return []any{it.Nombre, id, it.Talla, it.Cantidad, strings.Join(it.Materiales, ", ")}
}

func useSheet(f *excelize.File, sheet string) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet once ours exists
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, vals ...any) {
	for i, v := range vals {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func sheetName(kind constants.DocumentKind) string {
	switch kind {
	case constants.KindMaterial:
		return "Materiales"
	case constants.KindProduct:
		return "Productos"
	case constants.KindTool:
		return "Herramientas"
	default:
		return "Ordenes"
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func indexOf(ss []string, s string) (int, bool) {
	for i, x := range ss {
		if x == s {
			return i, true
		}
	}
	return -1, false
}
