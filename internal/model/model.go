// Package model содержит доменные сущности витрины магазина.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Amount описывает денежную сумму в целых рублях (единицах валюты бэкенда).
type Amount int64

// UnmarshalJSON принимает как целые, так и дробные числа и округляет их до целого.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	data = bytes.Trim(data, `"`)

	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*a = Amount(v)
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", data, err)
	}
	*a = Amount(math.Round(f))
	return nil
}

// Product представляет товар каталога. Клиент никогда не изменяет товары.
type Product struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       Amount   `json:"price"`
	Image       []string `json:"image"`
	Category    string   `json:"category,omitempty"`
	SubCategory string   `json:"subCategory,omitempty"`
	Bestseller  bool     `json:"bestseller,omitempty"`
	Date        int64    `json:"date,omitempty"`
}

// User описывает профиль пользователя.
type User struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// Address содержит данные формы доставки. Проверяется только при оформлении заказа.
type Address struct {
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
	Email        string `json:"email" validate:"required"`
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	Pincode      string `json:"pincode" validate:"required"`
	Country      string `json:"country" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	AltPhone     string `json:"alt_phone,omitempty"`
}

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "cod"
	PaymentGateway PaymentMethod = "gateway"
)

// ParsePaymentMethod приводит пользовательский ввод к способу оплаты.
// Вариант "razorpay" принимается как синоним платёжного шлюза.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch s {
	case string(PaymentCOD):
		return PaymentCOD, nil
	case string(PaymentGateway), "razorpay":
		return PaymentGateway, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

// OrderStatus описывает статус заказа. Сервер может прислать произвольную строку.
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "Order Placed"
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusShipped        OrderStatus = "Shipped"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
)

// OrderItem описывает позицию заказа, отправляемую на сервер.
type OrderItem struct {
	ProductID string `json:"_id"`
	Quantity  int    `json:"quantity"`
}

// OrderLine описывает позицию заказа в ответе сервера со снимком товара.
type OrderLine struct {
	ID       string   `json:"_id"`
	Product  *Product `json:"product,omitempty"`
	Quantity int      `json:"quantity"`
}

// Order описывает заказ пользователя в ответе сервера.
type Order struct {
	ID            string      `json:"_id"`
	UserID        string      `json:"userId"`
	Items         []OrderLine `json:"items"`
	Amount        Amount      `json:"amount"`
	Address       Address     `json:"address"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"paymentMethod"`
	Payment       bool        `json:"payment"`
	Date          Timestamp   `json:"date"`
}

// OrderDisplayItem описывает строку списка заказов: снимок товара и метаданные заказа.
type OrderDisplayItem struct {
	ProductID     string   `json:"productId"`
	Name          string   `json:"name"`
	Price         Amount   `json:"price"`
	Image         []string `json:"image"`
	Quantity      int      `json:"quantity"`
	Status        string   `json:"status"`
	Payment       bool     `json:"payment"`
	PaymentMethod string   `json:"paymentMethod"`
	Date          string   `json:"date"`
}

// GatewayOrder описывает заказ платёжного шлюза.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   Amount `json:"amount"`
	Currency string `json:"currency"`
}

// Timestamp принимает дату как миллисекунды Unix или как строку RFC 3339.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON разбирает числовое или строковое представление даты.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", data, err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}
