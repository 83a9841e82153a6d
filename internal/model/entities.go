package model

import "time"

// Entity is implemented by every resource item held in a store.
// Key returns the server-issued identity key.
type Entity interface {
	Key() string
}

// OrderStatusReceived is the terminal status of a received purchase order.
const OrderStatusReceived = "Received"

// MaterialRef is a reference to a raw material embedded in another entity.
type MaterialRef struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
}

// Material is a raw material held in stock.
type Material struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Stock       float64 `json:"stock"`
	Unit        string  `json:"unit"`
	Threshold   float64 `json:"threshold"`
	Description string  `json:"description"`
	IsLowStock  bool    `json:"isLowStock"`
}

func (m Material) Key() string { return m.ID }

// StockLabel is the derived stock status shown next to a material.
func (m Material) StockLabel() string {
	if m.IsLowStock {
		return "Low Stock"
	}
	return "In Stock"
}

// Vendor supplies raw materials.
type Vendor struct {
	ID        string        `json:"_id"`
	Name      string        `json:"name"`
	Contact   string        `json:"contact"`
	Email     string        `json:"email"`
	Address   string        `json:"address"`
	Materials []MaterialRef `json:"materials"`
}

func (v Vendor) Key() string { return v.ID }

// Order is a purchase order of a raw material from a vendor.
type Order struct {
	ID          string  `json:"_id"`
	Vendor      string  `json:"vendor"`
	Material    string  `json:"material"`
	Quantity    float64 `json:"quantity"`
	CostPerUnit float64 `json:"costPerUnit"`
	TotalCost   float64 `json:"totalCost"`
	Status      string  `json:"status"`
}

func (o Order) Key() string { return o.ID }

// Product is a finished good built from raw materials.
type Product struct {
	ID           string        `json:"_id"`
	Name         string        `json:"name"`
	Quantity     float64       `json:"quantity"`
	PricePerUnit float64       `json:"pricePerUnit"`
	RawMaterials []MaterialRef `json:"rawMaterials"`
}

func (p Product) Key() string { return p.ID }

// RawMaterialUsage records how much of a raw material a production run used.
type RawMaterialUsage struct {
	RawMaterialName string  `json:"rawMaterialName"`
	Quantity        float64 `json:"quantity,omitempty"`
}

// Production is one production run.
type Production struct {
	ProductionID      string             `json:"productionId"`
	ProductName       string             `json:"productName"`
	NoOfUnitsProduced float64            `json:"noOfUnitsProduced"`
	RawMaterials      []RawMaterialUsage `json:"rawMaterials"`
}

func (p Production) Key() string { return p.ProductionID }

// Sale is a sale of a product to a customer.
type Sale struct {
	SaleID        string    `json:"saleId"`
	ProductName   string    `json:"productName"`
	CustomerName  string    `json:"customerName"`
	NoOfUnitsSold float64   `json:"noOfUnitsSold"`
	TotalSale     float64   `json:"totalSale"`
	PricePerUnit  float64   `json:"pricePerUnit"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (s Sale) Key() string { return s.SaleID }

// User is an operator account. The signed-in user's Admin flag is the only
// authorization signal in the client.
type User struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Admin    bool   `json:"admin"`
}

func (u User) Key() string { return u.ID }
