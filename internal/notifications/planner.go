package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/payloads"
)

var customerStatusMessages = map[enums.OrderStatus]string{
	enums.OrderStatusApproved:        "Your payment was verified and the order is approved.",
	enums.OrderStatusPreparing:       "The kitchen is preparing your order.",
	enums.OrderStatusReadyForPickup:  "Your order is ready for pickup.",
	enums.OrderStatusWaitingForRider: "Your order is packed and waiting for a rider.",
	enums.OrderStatusPickedUp:        "A rider picked up your order.",
	enums.OrderStatusInTransit:       "Your order is on the way.",
	enums.OrderStatusDelivered:       "Your order was delivered.",
	enums.OrderStatusCompleted:       "Your order is complete. Thank you!",
	enums.OrderStatusRejected:        "Your order was rejected.",
	enums.OrderStatusCancelled:       "Your order was cancelled.",
}

// Plan maps a lifecycle event onto the notification rows it produces. Events
// nobody needs to hear about yield nil.
func Plan(event *payloads.LifecycleEvent) []models.Notification {
	if event == nil {
		return nil
	}
	switch event.EventType {
	case enums.EventOrderCreated:
		return collect(toAdmins(enums.NotificationTypeNewOrder,
			"New order",
			fmt.Sprintf("Order %s (%s) was placed%s.", orderLabel(event), event.OrderType, amountSuffix(event)),
			adminOrderLink(event)))
	case enums.EventOrderStatusChanged:
		return planStatusChange(event)
	case enums.EventOrderReturned:
		message := fmt.Sprintf("Order %s was returned by the rider.", orderLabel(event))
		if event.Reason != "" {
			message = fmt.Sprintf("Order %s was returned by the rider. Reason: %s", orderLabel(event), event.Reason)
		}
		return collect(
			toAdmins(enums.NotificationTypeOrderReturn, "Order returned", message, adminOrderLink(event)),
			toCustomer(event, enums.NotificationTypeOrderReturn, "Order returned",
				fmt.Sprintf("Order %s could not be delivered and was returned.", orderLabel(event))),
		)
	case enums.EventOrderDriverAssigned:
		return collect(
			toDriver(event.DriverID, enums.NotificationTypeAssignment, "New assignment",
				fmt.Sprintf("You were assigned to order %s.", orderLabel(event)), driverOrderLink(event)),
			toCustomer(event, enums.NotificationTypeAssignment, "Rider assigned",
				fmt.Sprintf("A rider was assigned to order %s.", orderLabel(event))),
		)
	case enums.EventOrderRefunded:
		return collect(toCustomer(event, enums.NotificationTypeRefund, "Refund sent",
			fmt.Sprintf("Your refund%s for order %s was sent.", amountSuffix(event), orderLabel(event))))
	case enums.EventStockLow:
		threshold := 0
		if event.Threshold != nil {
			threshold = *event.Threshold
		}
		quantity := 0
		if event.Quantity != nil {
			quantity = *event.Quantity
		}
		return collect(toAdmins(enums.NotificationTypeLowStock, "Low stock",
			fmt.Sprintf("%s is down to %d (threshold %d).", event.ProductName, quantity, threshold),
			idLink("/admin/stocks/", event.StockID)))
	case enums.EventEarningAvailable:
		return collect(toDriver(event.DriverID, enums.NotificationTypeEarning, "Earning available",
			fmt.Sprintf("Your earning%s is now available for payout.", amountSuffix(event)), "/driver/earnings"))
	case enums.EventPayoutRequested:
		return collect(toAdmins(enums.NotificationTypePayoutUpdate, "Payout requested",
			fmt.Sprintf("A driver requested a payout%s.", amountSuffix(event)),
			idLink("/admin/payouts/", event.PayoutID)))
	case enums.EventPayoutCompleted:
		return collect(toDriver(event.DriverID, enums.NotificationTypePayoutUpdate, "Payout sent",
			fmt.Sprintf("Your payout%s was sent.", amountSuffix(event)), "/driver/payouts"))
	case enums.EventPayoutRejected:
		message := fmt.Sprintf("Your payout%s was rejected and the earnings are available again.", amountSuffix(event))
		if event.Reason != "" {
			message = fmt.Sprintf("%s Reason: %s", message, event.Reason)
		}
		return collect(toDriver(event.DriverID, enums.NotificationTypePayoutUpdate, "Payout rejected", message, "/driver/payouts"))
	default:
		return nil
	}
}

func planStatusChange(event *payloads.LifecycleEvent) []models.Notification {
	status := enums.OrderStatus(event.NewStatus)
	var out []*models.Notification

	if status == enums.OrderStatusForVerification {
		out = append(out, toAdmins(enums.NotificationTypePayment, "Payment proof submitted",
			fmt.Sprintf("Order %s is waiting for payment verification.", orderLabel(event)), adminOrderLink(event)))
	}

	if message, ok := customerStatusMessages[status]; ok {
		if (status == enums.OrderStatusRejected || status == enums.OrderStatusCancelled) && event.Reason != "" {
			message = fmt.Sprintf("%s Reason: %s", message, event.Reason)
		}
		out = append(out, toCustomer(event, enums.NotificationTypeOrderUpdate,
			fmt.Sprintf("Order %s update", orderLabel(event)), message))
	}

	switch status {
	case enums.OrderStatusReadyForPickup, enums.OrderStatusWaitingForRider:
		out = append(out, toDriver(event.DriverID, enums.NotificationTypeOrderUpdate, "Order ready",
			fmt.Sprintf("Order %s is ready to be picked up.", orderLabel(event)), driverOrderLink(event)))
	case enums.OrderStatusCancelled:
		out = append(out, toDriver(event.DriverID, enums.NotificationTypeOrderUpdate, "Order cancelled",
			fmt.Sprintf("Order %s was cancelled.", orderLabel(event)), driverOrderLink(event)))
	}
	return collect(out...)
}

func collect(items ...*models.Notification) []models.Notification {
	var out []models.Notification
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func toAdmins(kind enums.NotificationType, title, message, link string) *models.Notification {
	return build(enums.NotificationAudienceAdmin, nil, kind, title, message, link)
}

func toCustomer(event *payloads.LifecycleEvent, kind enums.NotificationType, title, message string) *models.Notification {
	if event.CustomerID == nil {
		return nil
	}
	return build(enums.NotificationAudienceCustomer, event.CustomerID, kind, title, message, idLink("/orders/", event.OrderID))
}

func toDriver(driverID *uuid.UUID, kind enums.NotificationType, title, message, link string) *models.Notification {
	if driverID == nil {
		return nil
	}
	return build(enums.NotificationAudienceDriver, driverID, kind, title, message, link)
}

func build(audience enums.NotificationAudience, recipient *uuid.UUID, kind enums.NotificationType, title, message, link string) *models.Notification {
	n := &models.Notification{
		Audience: audience,
		Type:     kind,
		Title:    title,
		Message:  strings.TrimSpace(message),
	}
	if recipient != nil {
		id := *recipient
		n.RecipientID = &id
	}
	if link != "" {
		n.Link = &link
	}
	return n
}

func orderLabel(event *payloads.LifecycleEvent) string {
	if event.OrderNumber > 0 {
		return fmt.Sprintf("#%d", event.OrderNumber)
	}
	if event.OrderID != nil {
		return event.OrderID.String()[:8]
	}
	return "(unknown)"
}

func amountSuffix(event *payloads.LifecycleEvent) string {
	if event.Amount == nil {
		return ""
	}
	return " of " + event.Amount.StringFixed(2)
}

func adminOrderLink(event *payloads.LifecycleEvent) string {
	return idLink("/admin/orders/", event.OrderID)
}

func driverOrderLink(event *payloads.LifecycleEvent) string {
	return idLink("/driver/orders/", event.OrderID)
}

func idLink(prefix string, id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return prefix + id.String()
}
