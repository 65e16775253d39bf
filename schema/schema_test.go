package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexabank/bankfeed/errors"
)

var testFuncs = map[string]struct{}{
	"check_date":  {},
	"is_positive": {},
}

const sampleSchema = `
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
`

func compileSample(t *testing.T) *Ruleset {
	t.Helper()
	rs, err := Compile([]byte(sampleSchema), testFuncs)
	require.NoError(t, err)
	return rs
}

func TestCompilePreservesColumnOrder(t *testing.T) {
	rs := compileSample(t)

	assert.Equal(t, []string{"customer_id", "age", "city", "account_open_date"},
		rs.Columns("customer_profiles"))
	assert.Equal(t, []string{"sender", "transaction_amount"}, rs.Columns("transactions"))
	assert.Equal(t, []string{"customer_profiles", "transactions"}, rs.Datasets())
}

func TestCompiledConstraints(t *testing.T) {
	rs := compileSample(t)

	age := rs.Rule("customer_profiles", "age")
	require.NotNil(t, age)
	require.NotNil(t, age.Range)
	assert.True(t, age.Range.Contains(int64(18)))
	assert.True(t, age.Range.Contains(int64(100)))
	assert.False(t, age.Range.Contains(int64(101)))
	assert.True(t, age.Range.Contains(float64(50)), "integral float is in range")
	assert.False(t, age.Range.Contains(50.5), "fractional float is not")
	assert.False(t, age.Range.Contains("50"))

	city := rs.Rule("customer_profiles", "city")
	require.NotNil(t, city)
	_, ok := city.Enum["Giza"]
	assert.True(t, ok)

	id := rs.Rule("customer_profiles", "customer_id")
	require.NotNil(t, id.Pattern)
	assert.True(t, id.Pattern.MatchString("CUST00042"))
	assert.False(t, id.Pattern.MatchString("xxCUST00042"), "pattern must be anchored")
}

func TestResolveForeignTerminates(t *testing.T) {
	rs := compileSample(t)

	sender := rs.Rule("transactions", "sender")
	require.NotNil(t, sender)

	terminal, err := rs.Resolve(sender)
	require.NoError(t, err)
	assert.Empty(t, terminal.Foreign, "resolution must end at a rule without a foreign reference")
	assert.Equal(t, "customer_id", terminal.Column)
	assert.NotNil(t, terminal.Pattern)
}

func TestResolveTransitiveChain(t *testing.T) {
	const chained = `
a:
  x:
    type: int
    range: [0, 9]
b:
  x:
    foreign: a.x
c:
  x:
    foreign: b.x
`
	rs, err := Compile([]byte(chained), testFuncs)
	require.NoError(t, err)

	terminal, err := rs.Resolve(rs.Rule("c", "x"))
	require.NoError(t, err)
	assert.Equal(t, "a", terminal.Dataset)
	require.NotNil(t, terminal.Range)
}

func TestCyclicForeignIsConfigError(t *testing.T) {
	const cyclic = `
a:
  x:
    foreign: b.x
b:
  x:
    foreign: a.x
`
	_, err := Compile([]byte(cyclic), testFuncs)
	require.Error(t, err)
	assert.True(t, errors.IsSchemaConfigError(err))
}

func TestDanglingForeignIsConfigError(t *testing.T) {
	const dangling = `
a:
  x:
    foreign: nowhere.y
`
	_, err := Compile([]byte(dangling), testFuncs)
	require.Error(t, err)
	assert.True(t, errors.IsSchemaConfigError(err))
}

func TestUnknownFuncIsConfigError(t *testing.T) {
	const bad = `
a:
  x:
    type: int
    func: check_iban
`
	_, err := Compile([]byte(bad), testFuncs)
	require.Error(t, err)
	assert.True(t, errors.IsSchemaConfigError(err))
	assert.Contains(t, err.Error(), "check_iban")
}

func TestMalformedRangeIsConfigError(t *testing.T) {
	for _, doc := range []string{
		"a:\n  x:\n    range: [1]\n",
		"a:\n  x:\n    range: [9, 1]\n",
	} {
		_, err := Compile([]byte(doc), testFuncs)
		assert.True(t, errors.IsSchemaConfigError(err), "doc: %s", doc)
	}
}

func TestDatasetKeysLowercased(t *testing.T) {
	const upper = `
Transactions:
  amount:
    type: int
`
	rs, err := Compile([]byte(upper), testFuncs)
	require.NoError(t, err)
	assert.True(t, rs.Has("transactions"))
	assert.False(t, rs.Has("Transactions"))
}
