package model

import "time"

type Subscription struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Price        float64   `json:"price"`
	DurationDays int       `json:"durationDays"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

type BillingHistory struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	SubscriptionID string    `json:"subscriptionId"`
	Amount         float64   `json:"amount"`
	Status         string    `json:"status"`
	PaymentMethod  string    `json:"paymentMethod,omitempty"`
	PaidAt         time.Time `json:"paidAt"`
}
