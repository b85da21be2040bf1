package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// confirmationTemplate — письмо о подтверждении оплаты заказа.
var confirmationTemplate = template.Must(template.New("order_confirmed").Parse(`<html>
<body>
<h2>Order Confirmed</h2>
<p>Hi {{.CustomerName}},</p>
<p>Your payment for order <b>{{.ID}}</b> has been confirmed. We are preparing your parcel.</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Item</th><th>Size</th><th>Qty</th><th>Price</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td>{{if .Size}}{{.Size}}{{else}}-{{end}}</td><td>{{.Qty}}</td><td>&#8377;{{printf "%.2f" .Price}}</td></tr>
{{end}}</table>
<p>Shipping: &#8377;{{printf "%.2f" .ShippingCost}}</p>
<p><b>Total paid: &#8377;{{printf "%.2f" .TotalAmount}}</b></p>
<p>Shipping to: {{.ShippingAddress.Street}}, {{.ShippingAddress.City}}, {{.ShippingAddress.State}} {{.ShippingAddress.PostalCode}}, {{.ShippingAddress.Country}}</p>
</body>
</html>`))

// BuildConfirmationMail рендерит тему и HTML-тело письма о подтверждении заказа.
func BuildConfirmationMail(order domain.Order) (subject, htmlBody string, err error) {
	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, order); err != nil {
		return "", "", fmt.Errorf("failed to render confirmation mail: %w", err)
	}
	return fmt.Sprintf("Order %s confirmed", order.ID), buf.String(), nil
}

// SendConfirmation отправляет покупателю письмо о подтверждении оплаты.
func SendConfirmation(mailer domain.Mailer, order domain.Order) error {
	subject, body, err := BuildConfirmationMail(order)
	if err != nil {
		return err
	}
	return mailer.SendMail(order.CustomerEmail, subject, body)
}
