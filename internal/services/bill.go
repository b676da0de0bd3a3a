package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/example/tapcart/internal/models"
	"github.com/example/tapcart/internal/utils"
)

// AuthorizeBill allows a bill token bound to the order, or the owning store's session.
func AuthorizeBill(tokens *utils.TokenService, order *models.Order, token string, session *utils.Claims) bool {
	if token != "" && tokens.VerifyBill(token, order.OrderID) {
		return true
	}
	return session != nil && session.Kind == utils.KindStore && session.Subject == order.StoreID
}

var billTemplate = template.Must(template.New("bill").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
	"date": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("02 Jan 2006 15:04")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice - {{.OrderID}}</title>
<style>
body { font-family: 'Segoe UI', Tahoma, sans-serif; padding: 40px 20px; background: #f4f4f8; }
.invoice { max-width: 800px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; }
.header { background: #667eea; color: #fff; padding: 32px; text-align: center; }
.content { padding: 32px; }
table { width: 100%; border-collapse: collapse; margin: 24px 0; }
th, td { padding: 12px; text-align: left; border-bottom: 1px solid #eee; }
.totals div { display: flex; justify-content: space-between; padding: 6px 0; }
.final { font-size: 22px; font-weight: 700; color: #667eea; }
.status { padding: 4px 10px; border-radius: 12px; font-size: 12px; text-transform: uppercase; }
.status-confirmed { background: #d4edda; color: #155724; }
.status-pending { background: #fff3cd; color: #856404; }
@media print { body { background: #fff; padding: 0; } }
</style>
</head>
<body>
<div class="invoice">
<div class="header"><h1>Invoice</h1><p>Order ID: {{.OrderID}}</p></div>
<div class="content">
<p>Store: {{.StoreID}}</p>
<p>Customer: {{.CustomerPhone}}</p>
<p>Placed: {{date .PlacedAt}}</p>
<p>Paid: {{date .PaidAt}}</p>
<p>Payment: {{.PaymentMethod}} <span class="status status-{{.OrderStatus}}">{{.OrderStatus}}</span></p>
<table>
<thead><tr><th>Item</th><th>Qty</th><th>Unit price</th><th>Total</th></tr></thead>
<tbody>
{{range .Items}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{money .UnitPrice}}</td><td>{{money .LineTotal}}</td></tr>
{{end}}</tbody>
</table>
<div class="totals">
<div><span>Subtotal</span><span>{{money .Subtotal}}</span></div>
{{if .CouponCode}}<div><span>Discount ({{.CouponCode}})</span><span>-{{money .Discount}}</span></div>
{{else if gt .Discount 0.0}}<div><span>Discount</span><span>-{{money .Discount}}</span></div>
{{end}}<div class="final"><span>Total</span><span>{{money .FinalAmount}}</span></div>
</div>
</div>
</div>
</body>
</html>
`))

type billView struct {
	OrderID       string
	StoreID       string
	CustomerPhone string
	PaymentMethod string
	OrderStatus   string
	CouponCode    string
	PlacedAt      *time.Time
	PaidAt        *time.Time
	Subtotal      float64
	Discount      float64
	FinalAmount   float64
	Items         []models.OrderItem
}

// RenderBill renders order as a printable HTML invoice. All fields are escaped.
func RenderBill(order *models.Order) ([]byte, error) {
	view := billView{
		OrderID:       order.OrderID,
		StoreID:       order.StoreID,
		CustomerPhone: order.CustomerPhone,
		PaymentMethod: order.PaymentMethod,
		OrderStatus:   order.OrderStatus,
		PlacedAt:      &order.CreatedAt,
		PaidAt:        order.PaidAt,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		FinalAmount:   order.FinalAmount,
		Items:         order.Items,
	}
	if order.CouponCode != nil {
		view.CouponCode = *order.CouponCode
	}

	var buf bytes.Buffer
	if err := billTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render bill: %w", err)
	}
	return buf.Bytes(), nil
}
