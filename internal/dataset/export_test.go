package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/rfm"
)

func TestWriteOrdersCSV(t *testing.T) {
	orders := mustOrders(t, ordersCSV).Filter(Filter{Country: "France"})

	var buf bytes.Buffer
	require.NoError(t, WriteOrdersCSV(&buf, orders))
	assert.Equal(t,
		"InvoiceNo,InvoiceDate,TotalAmount,Country,CustomerID\n"+
			"536366,2011-01-15 09:00:00,5.50,France,12583.0\n",
		buf.String())
}

func TestWriteCustomersCSV_KeepsIDColumn(t *testing.T) {
	customers, err := ParseCustomers(strings.NewReader(customersCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCustomersCSV(&buf, customers))
	assert.Equal(t, customersCSV, buf.String())
}

func TestWriteScoredCSV(t *testing.T) {
	scored := []rfm.Scored{{
		Customer:       rfm.Customer{CustomerID: "A", Recency: 1, Frequency: 5, Monetary: 99.5},
		RecencyScore:   5,
		FrequencyScore: 4,
		MonetaryScore:  3,
		Code:           "543",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteScoredCSV(&buf, scored))
	assert.Equal(t,
		"CustomerID,Recency,Frequency,Monetary,R_score,F_score,M_score,RFM_score,segment\n"+
			"A,1,5,99.5,5,4,3,543,Champions\n",
		buf.String())
}

func TestWriteWorkbook(t *testing.T) {
	orders := mustOrders(t, ordersCSV)
	customers, err := ParseCustomers(strings.NewReader(customersCSV))
	require.NoError(t, err)

	t.Run("without scores", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteWorkbook(&buf, orders, customers, nil))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{SheetOrders, SheetRFM}, f.GetSheetList())

		rows, err := f.GetRows(SheetOrders)
		require.NoError(t, err)
		require.Len(t, rows, orders.Len()+1)
		assert.Equal(t, orders.Header, rows[0])
		assert.Equal(t, "France", rows[2][3])

		rows, err = f.GetRows(SheetRFM)
		require.NoError(t, err)
		assert.Len(t, rows, customers.Len()+1)
	})

	t.Run("with scores", func(t *testing.T) {
		scored := []rfm.Scored{{Customer: rfm.Customer{CustomerID: "A"}, RecencyScore: 1, FrequencyScore: 1, MonetaryScore: 1, Code: "111"}}

		var buf bytes.Buffer
		require.NoError(t, WriteWorkbook(&buf, orders, customers, scored))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{SheetOrders, SheetRFM, SheetScored}, f.GetSheetList())
		rows, err := f.GetRows(SheetScored)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Lost", rows[1][8])
	})
}
