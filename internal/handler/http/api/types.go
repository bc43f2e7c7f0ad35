// Package api описывает тела запросов и ответов HTTP API витрины.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Error defines model for Error.
type Error struct {
	Message string `json:"message"`
}

// UserRole defines model for User.Role.
type UserRole string

// Defines values for UserRole.
const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleCustomer UserRole = "customer"
)

// User defines model for User.
type User struct {
	Id        *openapi_types.UUID `json:"id,omitempty"`
	Name      string              `json:"name"`
	Email     openapi_types.Email `json:"email"`
	Phone     *string             `json:"phone,omitempty"`
	Role      UserRole            `json:"role"`
	CreatedAt *time.Time          `json:"createdAt,omitempty"`
}

// Token - ответ на успешный вход.
type Token struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int64  `json:"expiresIn"`
	User      User   `json:"user"`
}

// PostRegisterJSONBody defines parameters for PostRegister.
type PostRegisterJSONBody struct {
	Name     string              `json:"name" binding:"required"`
	Email    openapi_types.Email `json:"email" binding:"required"`
	Phone    *string             `json:"phone,omitempty"`
	Password string              `json:"password" binding:"required"`
}

// PostLoginJSONBody defines parameters for PostLogin.
type PostLoginJSONBody struct {
	Email    openapi_types.Email `json:"email" binding:"required"`
	Password string              `json:"password" binding:"required"`
}

// PostRegisterJSONRequestBody defines body for PostRegister for application/json ContentType.
type PostRegisterJSONRequestBody = PostRegisterJSONBody

// PostLoginJSONRequestBody defines body for PostLogin for application/json ContentType.
type PostLoginJSONRequestBody = PostLoginJSONBody

// AddressJSONBody - поля адреса доставки.
type AddressJSONBody struct {
	CityId    int64   `json:"cityId" binding:"required,gt=0"`
	Street    string  `json:"street" binding:"required,max=255"`
	House     string  `json:"house" binding:"required,max=32"`
	Apartment *string `json:"apartment,omitempty" binding:"omitempty,max=32"`
	Entrance  *string `json:"entrance,omitempty" binding:"omitempty,max=32"`
	Floor     *string `json:"floor,omitempty" binding:"omitempty,max=32"`
	Intercom  *string `json:"intercom,omitempty" binding:"omitempty,max=32"`
	Comment   *string `json:"comment,omitempty" binding:"omitempty,max=500"`
}

// PostCartItemsJSONBody - добавление варианта в корзину.
type PostCartItemsJSONBody struct {
	VariantId int64 `json:"variantId" binding:"required,gt=0"`
	Quantity  *int  `json:"quantity,omitempty" binding:"omitempty,gte=1"`
}

// PatchCartItemJSONBody - новое количество строки. 0 удаляет строку.
type PatchCartItemJSONBody struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// PostOrdersJSONBody - форма оформления заказа.
type PostOrdersJSONBody struct {
	AddressId  openapi_types.UUID `json:"addressId" binding:"required"`
	DeliveryAt *time.Time         `json:"deliveryAt,omitempty"`
	Comment    *string            `json:"comment,omitempty" binding:"omitempty,max=1000"`
}

// PatchAdminOrderStatusJSONBody - новый статус заказа.
type PatchAdminOrderStatusJSONBody struct {
	Status string `json:"status" binding:"required"`
}

// Acknowledged - ответ на уведомление платёжного шлюза.
type Acknowledged struct {
	Status string `json:"status"`
}
