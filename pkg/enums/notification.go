package enums

import "slices"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderUpdate  NotificationType = "order_update"
	NotificationTypeNewOrder     NotificationType = "new_order"
	NotificationTypePayment      NotificationType = "payment"
	NotificationTypeAssignment   NotificationType = "assignment"
	NotificationTypeOrderReturn  NotificationType = "order_return"
	NotificationTypeRefund       NotificationType = "refund"
	NotificationTypeLowStock     NotificationType = "low_stock"
	NotificationTypeEarning      NotificationType = "earning"
	NotificationTypePayoutUpdate NotificationType = "payout_update"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderUpdate,
	NotificationTypeNewOrder,
	NotificationTypePayment,
	NotificationTypeAssignment,
	NotificationTypeOrderReturn,
	NotificationTypeRefund,
	NotificationTypeLowStock,
	NotificationTypeEarning,
	NotificationTypePayoutUpdate,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

func ParseNotificationType(value string) (NotificationType, error) {
	return parseEnum("notification type", validNotificationTypes, value)
}

// NotificationAudience selects who can read a notification row.
type NotificationAudience string

const (
	NotificationAudienceAdmin    NotificationAudience = "admin"
	NotificationAudienceDriver   NotificationAudience = "driver"
	NotificationAudienceCustomer NotificationAudience = "customer"
)

// IsValid reports whether the audience is known.
func (a NotificationAudience) IsValid() bool {
	switch a {
	case NotificationAudienceAdmin, NotificationAudienceDriver, NotificationAudienceCustomer:
		return true
	default:
		return false
	}
}

// AudienceForRole maps an authenticated role onto its notification inbox.
func AudienceForRole(role ActorRole) (NotificationAudience, bool) {
	switch role {
	case ActorRoleAdmin:
		return NotificationAudienceAdmin, true
	case ActorRoleDriver:
		return NotificationAudienceDriver, true
	case ActorRoleCustomer:
		return NotificationAudienceCustomer, true
	default:
		return "", false
	}
}
