package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexabank/bankfeed/errors"
	"github.com/nexabank/bankfeed/frame"
	"github.com/nexabank/bankfeed/schema"
)

const testSchema = `
customer_profiles:
  customer_id:
    type: text
    regex: "CUST[0-9]{5}"
    format: "CUST#####"
  age:
    type: int
    range: [18, 100]
  city:
    type: text
    enum: [Cairo, Giza, Alexandria]
  account_open_date:
    type: text
    func: check_date
    format: "2006-01-02"
transactions:
  sender:
    foreign: customer_profiles.customer_id
  transaction_amount:
    type: float
    func: is_positive
tiers:
  level:
    type: int
    range: [1, 3]
    enum: ["1", "2"]
`

func testValidator(t *testing.T) *Validator {
	t.Helper()
	rules, err := schema.Compile([]byte(testSchema), FuncNames())
	require.NoError(t, err)
	return New(rules)
}

func profileFrame(t *testing.T, rows ...[]any) *frame.Frame {
	t.Helper()
	fr, err := frame.New([]string{"customer_id", "age", "city", "account_open_date"})
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, fr.AppendRow(row))
	}
	return fr
}

func TestValidRowsProduceEmptyReport(t *testing.T) {
	v := testValidator(t)
	fr := profileFrame(t,
		[]any{"CUST00001", int64(34), "Cairo", "2020-01-15"},
		[]any{"CUST00002", int64(67), "Giza", "2015-06-30"},
	)

	res, err := v.Validate("customer_profiles", fr)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Empty(t, res.Rows)
	assert.Empty(t, res.HeaderFailure)
}

func TestSingleViolationNamesOnlyThatColumn(t *testing.T) {
	v := testValidator(t)
	fr := profileFrame(t,
		[]any{"CUST00001", int64(17), "Cairo", "2020-01-15"},
		[]any{"CUST00002", int64(40), "Giza", "2015-06-30"},
	)

	res, err := v.Validate("customer_profiles", fr)
	require.NoError(t, err)
	assert.False(t, res.OK)

	require.Len(t, res.Rows, 1, "only the violating row appears")
	require.Contains(t, res.Rows, 0)
	require.Len(t, res.Rows[0], 1, "only the violating column appears")
	assert.Equal(t, "is out of range [18, 100]", res.Rows[0]["age"])
}

func TestLastCheckWinsEnumOverRange(t *testing.T) {
	v := testValidator(t)
	fr, err := frame.New([]string{"level"})
	require.NoError(t, err)
	// 5 fails the range [1,3] and also the enum {"1","2"}; the enum message
	// is evaluated later and must be the one retained.
	require.NoError(t, fr.AppendRow([]any{int64(5)}))

	res, err := v.Validate("tiers", fr)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "is an invalid choice", res.Rows[0]["level"])
}

func TestHeaderDtypeMismatchAbortsRowChecks(t *testing.T) {
	v := testValidator(t)
	fr := profileFrame(t,
		// age arrives as text; row 0 would also fail the range check, but the
		// header failure must short-circuit before any row check runs.
		[]any{"CUST00001", "seventeen", "Atlantis", "2020-01-15"},
	)

	res, err := v.Validate("customer_profiles", fr)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.HeaderFailure, "age")
	assert.Empty(t, res.Rows)
	assert.Nil(t, res.Frame)
}

func TestMissingColumnIsHardFailure(t *testing.T) {
	v := testValidator(t)
	fr, err := frame.New([]string{"customer_id", "age"})
	require.NoError(t, err)
	require.NoError(t, fr.AppendRow([]any{"CUST00001", int64(30)}))

	res, err := v.Validate("customer_profiles", fr)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.HeaderFailure)
}

func TestExtraColumnsSilentlyDropped(t *testing.T) {
	v := testValidator(t)
	fr, err := frame.New([]string{"internal_flag", "customer_id", "age", "city", "account_open_date"})
	require.NoError(t, err)
	require.NoError(t, fr.AppendRow([]any{"x", "CUST00001", int64(30), "Cairo", "2020-01-15"}))

	res, err := v.Validate("customer_profiles", fr)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, []string{"customer_id", "age", "city", "account_open_date"},
		res.Frame.Columns())
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	v := testValidator(t)
	fr, err := frame.New([]string{"city", "age", "account_open_date", "customer_id"})
	require.NoError(t, err)
	require.NoError(t, fr.AppendRow([]any{"Cairo", int64(30), "2020-01-15", "CUST00001"}))

	res, err := v.Validate("customer_profiles", fr)
	require.NoError(t, err)
	assert.True(t, res.OK)

	assert.Equal(t, []string{"city", "age", "account_open_date", "customer_id"}, fr.Columns(),
		"validation must reorder a view, not the input")
}

func TestForeignRuleApplied(t *testing.T) {
	v := testValidator(t)
	fr, err := frame.New([]string{"sender", "transaction_amount"})
	require.NoError(t, err)
	require.NoError(t, fr.AppendRow([]any{"not-a-customer", 10.0}))
	require.NoError(t, fr.AppendRow([]any{"CUST00007", 25.5}))

	res, err := v.Validate("transactions", fr)
	require.NoError(t, err)
	assert.False(t, res.OK)
	require.Contains(t, res.Rows, 0)
	assert.Equal(t, "has an invalid format (CUST#####)", res.Rows[0]["sender"])
	assert.NotContains(t, res.Rows, 1)
}

func TestUnknownDataset(t *testing.T) {
	v := testValidator(t)
	fr, err := frame.New([]string{"a"})
	require.NoError(t, err)

	_, err = v.Validate("crypto_wallets", fr)
	require.Error(t, err)
	assert.True(t, errors.IsUnknownDatasetError(err))
}

func TestPredicateFailures(t *testing.T) {
	v := testValidator(t)

	t.Run("bad date", func(t *testing.T) {
		fr := profileFrame(t, []any{"CUST00001", int64(30), "Cairo", "15/01/2020"})
		res, err := v.Validate("customer_profiles", fr)
		require.NoError(t, err)
		assert.Equal(t, "is an invalid date", res.Rows[0]["account_open_date"])
	})

	t.Run("negative amount", func(t *testing.T) {
		fr, err := frame.New([]string{"sender", "transaction_amount"})
		require.NoError(t, err)
		require.NoError(t, fr.AppendRow([]any{"CUST00001", -4.5}))

		res, err := v.Validate("transactions", fr)
		require.NoError(t, err)
		assert.Equal(t, "is a negative number", res.Rows[0]["transaction_amount"])
	})
}

func TestFormatReport(t *testing.T) {
	v := testValidator(t)
	fr := profileFrame(t,
		[]any{"CUST00001", int64(17), "Atlantis", "2020-01-15"},
	)

	res, err := v.Validate("customer_profiles", fr)
	require.NoError(t, err)

	report := FormatReport(res.Frame, res)
	assert.Contains(t, report, "Row (1)")
	assert.Contains(t, report, `- age: "17" is out of range [18, 100].`)
	assert.Contains(t, report, `- city: "Atlantis" is an invalid choice.`)
}

func TestRegisterCustomPredicate(t *testing.T) {
	Register("always_no", func(any, *schema.Rule) (bool, string) {
		return false, "is rejected"
	})
	t.Cleanup(func() {
		funcsMu.Lock()
		delete(funcs, "always_no")
		funcsMu.Unlock()
	})

	_, ok := Lookup("always_no")
	assert.True(t, ok)
	_, ok = FuncNames()["always_no"]
	assert.True(t, ok)
}
