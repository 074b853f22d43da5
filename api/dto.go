/*
dto.go - Data Transfer Objects for API requests and responses

These types decouple the internal domain model from the external API
contract. Monetary amounts are serialized as decimal strings; dates are
ISO-8601 date-times.

NAMING CONVENTION:
  - *Request:  request body types from clients
  - *Response: response types returned to clients

Validation is done in handlers and the domain, not in DTOs. DTOs are
pure data carriers.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/sales-engine/audit"
	"github.com/warp/sales-engine/sales"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SaleItemRequest is one requested line item.
type SaleItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateSaleRequest is the body of POST /sales.
type CreateSaleRequest struct {
	CustomerID    string           `json:"customer_id"`
	Items         []SaleItemRequest `json:"items"`
	PaymentMethod string           `json:"payment_method"`
	PaymentStatus string           `json:"payment_status"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// UpdateSaleRequest is the body of PUT /sales/{id}. Absent (null)
// fields leave the corresponding attribute unchanged.
type UpdateSaleRequest struct {
	Items         *[]SaleItemRequest `json:"items,omitempty"`
	Discount      *decimal.Decimal   `json:"discount,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	PaymentMethod *string            `json:"payment_method,omitempty"`
}

func toItemInputs(items []SaleItemRequest) []sales.ItemInput {
	inputs := make([]sales.ItemInput, len(items))
	for i, item := range items {
		inputs[i] = sales.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return inputs
}

func (r UpdateSaleRequest) toPatch() sales.SalePatch {
	var patch sales.SalePatch
	if r.Items != nil {
		patch.Items = sales.Set(toItemInputs(*r.Items))
	}
	if r.Discount != nil {
		patch.Discount = sales.Set(*r.Discount)
	}
	if r.Notes != nil {
		patch.Notes = sales.Set(*r.Notes)
	}
	if r.PaymentMethod != nil {
		patch.PaymentMethod = sales.Set(sales.PaymentMethod(*r.PaymentMethod))
	}
	return patch
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PartySummary is the embedded seller/customer reference in responses.
type PartySummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SaleItemResponse is one line item in a sale response.
type SaleItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalPrice  string `json:"total_price"`
}

// SaleResponse is the full representation of a sale.
type SaleResponse struct {
	ID            string             `json:"id"`
	SaleDate      string             `json:"sale_date"`
	TotalAmount   string             `json:"total_amount"`
	Discount      string             `json:"discount"`
	FinalAmount   string             `json:"final_amount"`
	Status        string             `json:"status"`
	Notes         string             `json:"notes,omitempty"`
	Seller        PartySummary       `json:"seller"`
	Customer      PartySummary       `json:"customer"`
	Items         []SaleItemResponse `json:"items"`
	PaymentMethod string             `json:"payment_method"`
	PaymentStatus string             `json:"payment_status"`
	PaymentDate   *string            `json:"payment_date,omitempty"`
	CreatedAt     string             `json:"created_at"`
}

// PageResponse wraps a page of results with pagination metadata.
type PageResponse[T any] struct {
	Content       []T `json:"content"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"total_elements"`
}

func toSaleResponse(s *sales.Sale) SaleResponse {
	items := make([]SaleItemResponse, len(s.Items))
	for i, item := range s.Items {
		items[i] = SaleItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
			TotalPrice:  item.TotalPrice().String(),
		}
	}

	resp := SaleResponse{
		ID:          s.ID,
		SaleDate:    s.SaleDate.Format(time.RFC3339),
		TotalAmount: s.TotalAmount.String(),
		Discount:    s.Discount.String(),
		FinalAmount: s.FinalAmount.String(),
		Status:      string(s.Status),
		Notes:       s.Notes,
		Seller: PartySummary{
			ID:    s.Seller.ID,
			Name:  s.Seller.Name,
			Email: s.Seller.Email,
		},
		Customer: PartySummary{
			ID:    s.Customer.ID,
			Name:  s.Customer.Name,
			Email: s.Customer.Email,
		},
		Items:         items,
		PaymentMethod: string(s.Payment.Method),
		PaymentStatus: string(s.Payment.Status),
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
	if s.Payment.PaidAt != nil {
		paidAt := s.Payment.PaidAt.Format(time.RFC3339)
		resp.PaymentDate = &paidAt
	}
	return resp
}

func toSaleResponses(list []*sales.Sale) []SaleResponse {
	responses := make([]SaleResponse, len(list))
	for i, s := range list {
		responses[i] = toSaleResponse(s)
	}
	return responses
}

// AuditEntryResponse is one audit entry in API responses.
type AuditEntryResponse struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Action     string `json:"action"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	UserID     string `json:"user_id"`
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	Timestamp  string `json:"timestamp"`
}

func toAuditResponses(entries []audit.Entry) []AuditEntryResponse {
	responses := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = AuditEntryResponse{
			ID:         e.ID,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Action:     e.Action,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			UserID:     e.UserID,
			IPAddress:  e.IPAddress,
			UserAgent:  e.UserAgent,
			Timestamp:  e.Timestamp.Format(time.RFC3339),
		}
	}
	return responses
}
