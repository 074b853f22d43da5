package sales_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/sales-engine/sales"
)

func TestRecalculate_SumsItemsAndAppliesDiscount(t *testing.T) {
	sale := &sales.Sale{
		Items: []sales.SaleItem{
			{Quantity: 2, UnitPrice: dec("10.00")},
			{Quantity: 3, UnitPrice: dec("3.50")},
		},
		Discount: dec("5.00"),
	}

	sale.Recalculate()

	assert.Equal(t, "30.5", sale.TotalAmount.String())
	assert.Equal(t, "25.5", sale.FinalAmount.String())
}

func TestSaleItem_TotalPrice(t *testing.T) {
	item := sales.SaleItem{Quantity: 4, UnitPrice: dec("2.25")}
	assert.Equal(t, "9", item.TotalPrice().String())
}

func TestSaleStatus_Editable(t *testing.T) {
	assert.True(t, sales.StatusPending.Editable())
	assert.False(t, sales.StatusCompleted.Editable())
	assert.False(t, sales.StatusCancelled.Editable())
}

func TestPaymentMethod_IsInstant(t *testing.T) {
	assert.True(t, sales.MethodCash.IsInstant())
	assert.True(t, sales.MethodDebitCard.IsInstant())
	assert.False(t, sales.MethodPix.IsInstant())
	assert.False(t, sales.MethodCreditCard.IsInstant())
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, sales.MethodPix.Valid())
	assert.False(t, sales.PaymentMethod("BARTER").Valid())
}
