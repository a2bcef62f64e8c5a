package notify

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/foodville/marketplace-api/internal/model"
)

// Message is the email handed to the mail relay.
type Message struct {
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	OrderID uuid.UUID         `json:"order_id"`
	Status  model.OrderStatus `json:"status"`
}

func statusText(event OrderEvent) string {
	switch event.Status {
	case model.OrderStatusAccepted:
		return "We're happy to inform you that your order has been accepted and is being processed."
	case model.OrderStatusRejected:
		return fmt.Sprintf("Unfortunately, your order has been rejected. Please reach out to %s with any questions.", event.StoreName)
	case model.OrderStatusOutForDelivery:
		return "Good news! Your order is out for delivery and will be with you soon."
	case model.OrderStatusReadyForPickUp:
		return "Your order is ready for pick-up! Please collect it at your specified pick-up schedule."
	case model.OrderStatusCompleted:
		return "Your order has been successfully completed. We hope you enjoy your meal!"
	}
	return ""
}

// ComposeStatusMessage renders the customer email for a status change. ok is
// false for statuses that don't notify.
func ComposeStatusMessage(event OrderEvent, brand, currency string) (Message, bool) {
	if !event.Status.Notifies() {
		return Message{}, false
	}

	body := fmt.Sprintf(`Hello %s!

%s

Order Details:
- Order ID: #%s
- Status: %s
- Total Amount: %s%s

Thank you for choosing %s! If you have any questions or need assistance, feel free to reach out to us.

Best regards,
The %s Team`,
		event.CustomerFirstName, statusText(event), event.OrderID, event.Status,
		currency, event.TotalPrice.StringFixed(2), brand, brand)

	return Message{
		To:      event.CustomerEmail,
		Subject: fmt.Sprintf("Order %s on %s", event.Status, brand),
		Body:    body,
		OrderID: event.OrderID,
		Status:  event.Status,
	}, true
}
