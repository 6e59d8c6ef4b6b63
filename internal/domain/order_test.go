package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOrder() Order {
	o := Order{
		ID:          "order-1",
		TotalAmount: 100,
		Links: []SplitItem{
			{ID: "a", Value: 40},
			{ID: "b", Value: 60},
		},
	}
	o.RefreshStatus()
	return o
}

func TestOrder_RefreshStatus(t *testing.T) {
	o := validOrder()
	assert.Equal(t, OrderStatusPending, o.Status)

	o.Links[0].IsPaid = true
	o.RefreshStatus()
	assert.Equal(t, OrderStatusPending, o.Status, "one unpaid item keeps the order pending")

	o.Links[1].IsPaid = true
	o.RefreshStatus()
	assert.Equal(t, OrderStatusPaid, o.Status)

	o.Links[0].IsPaid = false
	o.RefreshStatus()
	assert.Equal(t, OrderStatusPending, o.Status, "un-paying any item reverts to pending")

	o.Links = nil
	o.RefreshStatus()
	assert.Equal(t, OrderStatusPending, o.Status)
}

func TestOrder_Validate(t *testing.T) {
	totals := NewCurrencyTotals()

	tests := []struct {
		name   string
		mutate func(o *Order)
		errMsg string
	}{
		{
			name:   "Valid order should pass",
			mutate: func(o *Order) {},
		},
		{
			name:   "Empty ID should fail",
			mutate: func(o *Order) { o.ID = "  " },
			errMsg: "order id cannot be empty",
		},
		{
			name:   "Non-positive total should fail",
			mutate: func(o *Order) { o.TotalAmount = 0 },
			errMsg: "order total amount must be positive",
		},
		{
			name:   "No items should fail",
			mutate: func(o *Order) { o.Links = nil },
			errMsg: "order must have at least one split item",
		},
		{
			name:   "Item without ID should fail",
			mutate: func(o *Order) { o.Links[1].ID = "" },
			errMsg: "split item id cannot be empty",
		},
		{
			name:   "Duplicate item IDs should fail",
			mutate: func(o *Order) { o.Links[1].ID = "a" },
			errMsg: "split item ids must be unique within an order",
		},
		{
			name:   "Zero value item should fail",
			mutate: func(o *Order) { o.Links[0].Value = 0 },
			errMsg: "split item value must be positive",
		},
		{
			name:   "Unknown status should fail",
			mutate: func(o *Order) { o.Status = "refunded" },
			errMsg: "order status must be pending or paid",
		},
		{
			name:   "Totals without registration should fail",
			mutate: func(o *Order) { o.ExecutionTotals = &totals },
			errMsg: "execution totals must be present exactly when execution is registered",
		},
		{
			name:   "Registration without totals should fail",
			mutate: func(o *Order) { o.IsExecutionRegistered = true },
			errMsg: "execution totals must be present exactly when execution is registered",
		},
		{
			name: "Registration with totals should pass",
			mutate: func(o *Order) {
				o.ExecutionTotals = &totals
				o.IsExecutionRegistered = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			tt.mutate(&o)

			err := o.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOrder_FindItem(t *testing.T) {
	o := validOrder()

	assert.Equal(t, 1, o.FindItem("b"))
	assert.Equal(t, -1, o.FindItem("z"))
}

func TestOrder_CloneIsDeep(t *testing.T) {
	totals := NewCurrencyTotals()
	totals.TotalCost["BRL"] = decimal.NewFromInt(100)

	o := validOrder()
	o.ExtractedRecords = []ExtractedRecord{{OrderNumber: "1"}}
	o.ExecutionTotals = &totals
	o.IsExecutionRegistered = true

	c := o.Clone()
	c.Links[0].IsPaid = true
	c.ExtractedRecords[0].OrderNumber = "2"
	c.ExecutionTotals.TotalCost["BRL"] = decimal.NewFromInt(1)

	assert.False(t, o.Links[0].IsPaid)
	assert.Equal(t, "1", o.ExtractedRecords[0].OrderNumber)
	assert.True(t, decimal.NewFromInt(100).Equal(o.ExecutionTotals.TotalCost["BRL"]))

	var nilOrder *Order
	assert.Nil(t, nilOrder.Clone())
}

func TestNewSplitItems(t *testing.T) {
	items := NewSplitItems([]int64{23, 27, 24, 26})

	require.Len(t, items, 4)
	ids := make(map[string]bool)
	for i, item := range items {
		assert.NotEmpty(t, item.ID)
		assert.False(t, item.IsPaid)
		assert.Empty(t, item.LinkURL)
		ids[item.ID] = true
		assert.Equal(t, []int64{23, 27, 24, 26}[i], item.Value)
	}
	assert.Len(t, ids, 4)
}
