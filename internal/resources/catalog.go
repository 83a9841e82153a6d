package resources

import (
	"maps"
	"strings"

	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/ops"
	"github.com/roach88/erpsync/internal/search"
	"github.com/roach88/erpsync/internal/state"
)

func rules[T model.Entity](r model.Resource) state.Rules[T] {
	return state.Rules[T]{
		Resource:          r,
		Operations:        state.CRUD(),
		InitialPagination: state.DefaultPagination(),
	}
}

func refNames(refs []model.MaterialRef) string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	return strings.Join(names, ", ")
}

func usageNames(usages []model.RawMaterialUsage) string {
	names := make([]string, 0, len(usages))
	for _, u := range usages {
		names = append(names, u.RawMaterialName)
	}
	return strings.Join(names, ", ")
}

// Materials describes raw materials.
func Materials() Definition[model.Material] {
	return Definition[model.Material]{
		Rules: rules[model.Material](model.ResourceMaterial),
		Wire: Wire{
			Collection:  "materials",
			DetailPath:  "materials-detail",
			AddPath:     "add-material",
			ListKey:     "materials",
			TotalKey:    "totalMaterials",
			ItemKey:     "material",
			CreatedKeys: []string{"material"},
			UpdatedKeys: []string{"updatedMaterial", "material"},
		},
		Fields: func(m model.Material) []string {
			return []string{
				m.Name,
				search.Number(m.Stock),
				m.Unit,
				search.Number(m.Threshold),
				m.Description,
				m.StockLabel(),
			}
		},
		Columns: []Column[model.Material]{
			{Header: "ID", Value: func(m model.Material) string { return m.ID }},
			{Header: "NAME", Value: func(m model.Material) string { return m.Name }},
			{Header: "STOCK", Value: func(m model.Material) string { return search.Number(m.Stock) + " " + m.Unit }},
			{Header: "THRESHOLD", Value: func(m model.Material) string { return search.Number(m.Threshold) }},
			{Header: "STATUS", Value: model.Material.StockLabel},
		},
	}
}

// Vendors describes material vendors.
func Vendors() Definition[model.Vendor] {
	return Definition[model.Vendor]{
		Rules: rules[model.Vendor](model.ResourceVendor),
		Wire: Wire{
			Collection:  "vendors",
			DetailPath:  "vendors-detail",
			AddPath:     "add-vendor",
			ListKey:     "vendors",
			TotalKey:    "totalVendors",
			ItemKey:     "vendor",
			CreatedKeys: []string{"vendor"},
			UpdatedKeys: []string{"updatedVendor", "vendor"},
		},
		Fields: func(v model.Vendor) []string {
			fields := []string{v.Name, v.Contact, v.Email, v.Address}
			for _, m := range v.Materials {
				fields = append(fields, m.Name)
			}
			return fields
		},
		Columns: []Column[model.Vendor]{
			{Header: "ID", Value: func(v model.Vendor) string { return v.ID }},
			{Header: "NAME", Value: func(v model.Vendor) string { return v.Name }},
			{Header: "CONTACT", Value: func(v model.Vendor) string { return v.Contact }},
			{Header: "EMAIL", Value: func(v model.Vendor) string { return v.Email }},
			{Header: "MATERIALS", Value: func(v model.Vendor) string { return refNames(v.Materials) }},
		},
	}
}

// Orders describes purchase orders, which can also be received.
func Orders() Definition[model.Order] {
	r := rules[model.Order](model.ResourceOrder)
	table := maps.Clone(r.Operations)
	table[model.OpReceive] = state.ClassMarkReceived
	r.Operations = table
	r.Receive = func(o model.Order) model.Order {
		o.Status = model.OrderStatusReceived
		return o
	}

	return Definition[model.Order]{
		Rules: r,
		Wire: Wire{
			Collection:  "orders",
			DetailPath:  "orders-detail",
			AddPath:     "add-order",
			ListKey:     "orders",
			TotalKey:    "totalOrders",
			ItemKey:     "order",
			CreatedKeys: []string{"order"},
			UpdatedKeys: []string{"updatedOrder", "order"},
		},
		Fields: func(o model.Order) []string {
			return []string{
				o.Vendor,
				o.Material,
				search.Number(o.Quantity),
				search.Number(o.CostPerUnit),
				search.Number(o.TotalCost),
				o.Status,
			}
		},
		Columns: []Column[model.Order]{
			{Header: "ID", Value: func(o model.Order) string { return o.ID }},
			{Header: "VENDOR", Value: func(o model.Order) string { return o.Vendor }},
			{Header: "MATERIAL", Value: func(o model.Order) string { return o.Material }},
			{Header: "QUANTITY", Value: func(o model.Order) string { return search.Number(o.Quantity) }},
			{Header: "TOTAL", Value: func(o model.Order) string { return search.Number(o.TotalCost) }},
			{Header: "STATUS", Value: func(o model.Order) string { return o.Status }},
		},
	}
}

// Products describes finished goods.
func Products() Definition[model.Product] {
	return Definition[model.Product]{
		Rules: rules[model.Product](model.ResourceProduct),
		Wire: Wire{
			Collection:  "products",
			DetailPath:  "products-detail",
			AddPath:     "add-product",
			ListKey:     "products",
			TotalKey:    "totalProducts",
			ItemKey:     "product",
			CreatedKeys: []string{"product"},
			UpdatedKeys: []string{"updatedProduct", "product"},
		},
		Fields: func(p model.Product) []string {
			fields := []string{p.Name, search.Number(p.Quantity), search.Number(p.PricePerUnit)}
			for _, m := range p.RawMaterials {
				fields = append(fields, m.Name)
			}
			return fields
		},
		Columns: []Column[model.Product]{
			{Header: "ID", Value: func(p model.Product) string { return p.ID }},
			{Header: "NAME", Value: func(p model.Product) string { return p.Name }},
			{Header: "QUANTITY", Value: func(p model.Product) string { return search.Number(p.Quantity) }},
			{Header: "PRICE", Value: func(p model.Product) string { return search.Number(p.PricePerUnit) }},
			{Header: "RAW MATERIALS", Value: func(p model.Product) string { return refNames(p.RawMaterials) }},
		},
	}
}

// Productions describes production runs. Updates splice the returned run
// into the loaded items.
func Productions() Definition[model.Production] {
	r := rules[model.Production](model.ResourceProduction)
	r.SpliceOnUpdate = true

	return Definition[model.Production]{
		Rules: r,
		Wire: Wire{
			Collection:  "productions",
			DetailPath:  "production-detail",
			AddPath:     "add-production",
			ListKey:     "productions",
			TotalKey:    "totalProductions",
			ItemKey:     "production",
			CreatedKeys: []string{"productions", "production"},
			UpdatedKeys: []string{"updatedProduction", "production"},
		},
		Fields: func(p model.Production) []string {
			fields := []string{p.ProductName, search.Number(p.NoOfUnitsProduced)}
			for _, u := range p.RawMaterials {
				fields = append(fields, u.RawMaterialName)
			}
			return fields
		},
		Columns: []Column[model.Production]{
			{Header: "ID", Value: func(p model.Production) string { return p.ProductionID }},
			{Header: "PRODUCT", Value: func(p model.Production) string { return p.ProductName }},
			{Header: "UNITS", Value: func(p model.Production) string { return search.Number(p.NoOfUnitsProduced) }},
			{Header: "RAW MATERIALS", Value: func(p model.Production) string { return usageNames(p.RawMaterials) }},
		},
		Notify: map[model.OperationName]ops.Notify{
			model.OpListPage: {Failure: true, FailureText: "Failed to fetch productions"},
		},
	}
}

// Sales describes product sales.
func Sales() Definition[model.Sale] {
	return Definition[model.Sale]{
		Rules: rules[model.Sale](model.ResourceSale),
		Wire: Wire{
			Collection:  "sales",
			DetailPath:  "sales-detail",
			AddPath:     "add-sale",
			ListKey:     "sales",
			TotalKey:    "totalSales",
			ItemKey:     "sale",
			CreatedKeys: []string{"sale"},
			UpdatedKeys: []string{"updatedSale", "sale"},
		},
		Fields: func(s model.Sale) []string {
			return []string{
				s.ProductName,
				s.CustomerName,
				search.Number(s.NoOfUnitsSold),
				search.Number(s.TotalSale),
				search.Number(s.PricePerUnit),
				search.Date(s.CreatedAt),
			}
		},
		Columns: []Column[model.Sale]{
			{Header: "ID", Value: func(s model.Sale) string { return s.SaleID }},
			{Header: "PRODUCT", Value: func(s model.Sale) string { return s.ProductName }},
			{Header: "CUSTOMER", Value: func(s model.Sale) string { return s.CustomerName }},
			{Header: "UNITS", Value: func(s model.Sale) string { return search.Number(s.NoOfUnitsSold) }},
			{Header: "TOTAL", Value: func(s model.Sale) string { return search.Number(s.TotalSale) }},
			{Header: "DATE", Value: func(s model.Sale) string { return search.Date(s.CreatedAt) }},
		},
	}
}
