package decode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexabank/bankfeed/frame"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecodeCSV(t *testing.T) {
	path := writeFile(t, "customer_profiles.csv",
		"customer_id,age,balance,city\nCUST00001,34,120.50,Cairo\nCUST00002,41,88.00,Giza\n")

	ok, fr := Decode(path)
	require.True(t, ok)
	require.NotNil(t, fr)

	assert.Equal(t, []string{"customer_id", "age", "balance", "city"}, fr.Columns())
	assert.Equal(t, 2, fr.Len())
	assert.Equal(t, frame.KindString, fr.Kind("customer_id"))
	assert.Equal(t, frame.KindInt, fr.Kind("age"))
	assert.Equal(t, frame.KindFloat, fr.Kind("balance"))

	v, _ := fr.Value(1, "age")
	assert.Equal(t, int64(41), v)
	v, _ = fr.Value(0, "balance")
	assert.Equal(t, 120.50, v)
}

func TestDecodePipeDelimitedTXT(t *testing.T) {
	path := writeFile(t, "loans.txt",
		"loan_id|amount_utilized|utilization_date\nLN001|5000|2025-01-10\nLN002|7500|2025-02-11\n")

	ok, fr := Decode(path)
	require.True(t, ok)
	assert.Equal(t, []string{"loan_id", "amount_utilized", "utilization_date"}, fr.Columns())
	assert.Equal(t, frame.KindInt, fr.Kind("amount_utilized"))
}

func TestDecodeJSONRecords(t *testing.T) {
	path := writeFile(t, "transactions.json",
		`[{"transaction_id": "TX1", "transaction_amount": 100, "channel": "atm"},
		  {"transaction_id": "TX2", "transaction_amount": 55.25, "channel": "web"}]`)

	ok, fr := Decode(path)
	require.True(t, ok)

	assert.Equal(t, []string{"transaction_id", "transaction_amount", "channel"}, fr.Columns(),
		"column order must follow the first record's key order")
	// Mixed int/float promotes the whole column to float64.
	assert.Equal(t, frame.KindFloat, fr.Kind("transaction_amount"))
	v, _ := fr.Value(0, "transaction_amount")
	assert.Equal(t, 100.0, v)
}

func TestDecodeJSONNestedValuesSkipped(t *testing.T) {
	path := writeFile(t, "transactions.json",
		`[{"id": "a", "meta": {"x": 1, "y": [2, 3]}, "amount": 5}]`)

	ok, fr := Decode(path)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "meta", "amount"}, fr.Columns())
}

func TestDecodeFailureClasses(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		ok, fr := Decode(filepath.Join(t.TempDir(), "transactions.json"))
		assert.False(t, ok)
		assert.Nil(t, fr)
	})

	t.Run("empty file", func(t *testing.T) {
		ok, _ := Decode(writeFile(t, "loans.txt", ""))
		assert.False(t, ok)
	})

	t.Run("whitespace only", func(t *testing.T) {
		ok, _ := Decode(writeFile(t, "loans.csv", "  \n \n"))
		assert.False(t, ok)
	})

	t.Run("malformed json", func(t *testing.T) {
		ok, _ := Decode(writeFile(t, "transactions.json", `[{"a": 1`))
		assert.False(t, ok)
	})

	t.Run("empty json array", func(t *testing.T) {
		ok, _ := Decode(writeFile(t, "transactions.json", `[]`))
		assert.False(t, ok)
	})

	t.Run("ragged csv", func(t *testing.T) {
		ok, _ := Decode(writeFile(t, "loans.csv", "a,b\n1,2,3\n"))
		assert.False(t, ok)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		ok, _ := Decode(writeFile(t, "loans.parquet", "binary"))
		assert.False(t, ok)
	})
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b,c\n1,2,3")))
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n")))
	assert.Equal(t, '\t', sniffDelimiter([]byte("a\tb\tc\n")))
	assert.Equal(t, '|', sniffDelimiter([]byte("a|b|c\n")))
	assert.Equal(t, ',', sniffDelimiter([]byte("singlecolumn\n")), "fallback is comma")
}
