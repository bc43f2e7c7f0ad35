package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- User ---

// UserRole представляет роль пользователя в системе.
type UserRole string

// Константы для ролей пользователя.
const (
	RoleCustomer UserRole = "customer" // Покупатель
	RoleAdmin    UserRole = "admin"    // Администратор пиццерии
)

// IsValid проверяет, является ли строка допустимой ролью пользователя.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin:
		return true
	default:
		return false
	}
}

// User представляет пользователя магазина.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// --- Справочники ---

// City - город, в который осуществляется доставка.
type City struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Category - раздел каталога (пиццы, закуски, напитки...).
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sortOrder"`
}

// --- Каталог ---

// Product - позиция меню. Цена хранится в вариантах.
type Product struct {
	ID          int64            `json:"id"`
	CategoryID  int64            `json:"categoryId"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	ImageURL    string           `json:"imageUrl"`
	IsActive    bool             `json:"isActive"`
	Variants    []ProductVariant `json:"variants"`
}

// ProductVariant - конкретный вариант товара (размер пиццы, объём напитка).
type ProductVariant struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	WeightGrams int             `json:"weightGrams"`
	SortOrder   int             `json:"sortOrder"`
}

// Page описывает запрошенную страницу списка.
type Page struct {
	Number  int
	PerSize int
}

// Offset возвращает смещение для SQL-запроса.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerSize
}

// PaginationMeta - метаданные пагинации, которые ожидает фронтенд.
type PaginationMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// NewPaginationMeta считает номер последней страницы. Пустой список даёт last_page = 1.
func NewPaginationMeta(page Page, total int) PaginationMeta {
	lastPage := 1
	if page.PerSize > 0 && total > 0 {
		lastPage = (total + page.PerSize - 1) / page.PerSize
	}
	return PaginationMeta{
		CurrentPage: page.Number,
		LastPage:    lastPage,
		PerPage:     page.PerSize,
		Total:       total,
	}
}

// ProductList - страница товаров категории.
type ProductList struct {
	Category Category       `json:"category"`
	Products []Product      `json:"products"`
	Meta     PaginationMeta `json:"meta"`
}

// --- Адреса ---

// Address - адрес доставки пользователя.
type Address struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	CityID    int64     `json:"cityId"`
	CityName  string    `json:"cityName"`
	Street    string    `json:"street"`
	House     string    `json:"house"`
	Apartment string    `json:"apartment,omitempty"`
	Entrance  string    `json:"entrance,omitempty"`
	Floor     string    `json:"floor,omitempty"`
	Intercom  string    `json:"intercom,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddressInput - поля адреса, которые задаёт пользователь.
type AddressInput struct {
	CityID    int64
	Street    string
	House     string
	Apartment string
	Entrance  string
	Floor     string
	Intercom  string
	Comment   string
}

// Line собирает адрес в одну строку для снимка в заказе.
func (a Address) Line() string {
	line := a.CityName + ", " + a.Street + ", д. " + a.House
	if a.Apartment != "" {
		line += ", кв. " + a.Apartment
	}
	return line
}

// --- Корзина ---

// CartOwner определяет владельца корзины: авторизованный пользователь или гость с токеном.
// Заполнено ровно одно поле.
type CartOwner struct {
	UserID     *uuid.UUID
	GuestToken *uuid.UUID
}

// ForUser создает владельца корзины для авторизованного пользователя.
func ForUser(id uuid.UUID) CartOwner {
	return CartOwner{UserID: &id}
}

// ForGuest создает владельца корзины для гостя.
func ForGuest(token uuid.UUID) CartOwner {
	return CartOwner{GuestToken: &token}
}

// IsZero сообщает, что владелец не определен.
func (o CartOwner) IsZero() bool {
	return o.UserID == nil && o.GuestToken == nil
}

// String нужен для логов и ключей кеша.
func (o CartOwner) String() string {
	switch {
	case o.UserID != nil:
		return "user:" + o.UserID.String()
	case o.GuestToken != nil:
		return "guest:" + o.GuestToken.String()
	default:
		return "none"
	}
}

// CartItem - строка корзины вместе с актуальными данными о товаре.
type CartItem struct {
	VariantID     int64           `json:"variantId"`
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName"`
	ProductSlug   string          `json:"productSlug"`
	ImageURL      string          `json:"imageUrl"`
	VariantName   string          `json:"variantName"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
	ProductActive bool            `json:"available"`
}

// Cart - содержимое корзины с итогами.
type Cart struct {
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"itemsCount"`
}

// NewCart пересчитывает итоги по строкам корзины.
func NewCart(items []CartItem) *Cart {
	cart := &Cart{Items: make([]CartItem, 0, len(items)), Total: decimal.Zero}
	for _, item := range items {
		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		cart.Total = cart.Total.Add(item.LineTotal)
		cart.ItemsCount += item.Quantity
		cart.Items = append(cart.Items, item)
	}
	return cart
}

// IsEmpty сообщает, что в корзине нет позиций.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// CheckoutSummary - данные страницы оформления заказа.
type CheckoutSummary struct {
	Cart           *Cart           `json:"cart"`
	Addresses      []Address       `json:"addresses"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
	CanPlaceOrder  bool            `json:"canPlaceOrder"`
	Problems       []string        `json:"problems,omitempty"`
}
