package dbkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_SupportedKinds(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	params, err := Bind(nil, 1, int32(2), int64(3), "text", ts, true, []byte{0x01})
	require.NoError(t, err)
	require.Len(t, params, 8)

	kinds := make([]ParamKind, len(params))
	for i, p := range params {
		kinds[i] = p.Kind()
	}
	assert.Equal(t, []ParamKind{
		ParamNull, ParamInt, ParamInt, ParamInt,
		ParamText, ParamTimestamp, ParamBool, ParamBytes,
	}, kinds)
}

func TestBind_RejectsUnsupportedType(t *testing.T) {
	_, err := Bind("ok", 3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type float64")
	assert.Contains(t, err.Error(), "bind value 1")
}

func TestBind_PassesParamsThrough(t *testing.T) {
	params, err := Bind(Text("already built"))
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, ParamText, params[0].Kind())
}

func TestDriverValue_TimestampNormalizedToUTC(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	local := time.Date(2024, 5, 1, 21, 30, 0, 0, seoul)

	v := Timestamp(local).driverValue()
	bound, ok := v.(time.Time)
	require.True(t, ok)

	assert.Equal(t, time.UTC, bound.Location())
	assert.True(t, bound.Equal(local), "UTC conversion must preserve the instant")
	assert.Equal(t, 12, bound.Hour())
}

func TestDriverValue_NonTimestampKindsPassThrough(t *testing.T) {
	assert.Equal(t, int64(42), Int(42).driverValue())
	assert.Equal(t, "hello", Text("hello").driverValue())
	assert.Equal(t, true, Bool(true).driverValue())
	assert.Equal(t, []byte{0xca, 0xfe}, Bytes([]byte{0xca, 0xfe}).driverValue())
	assert.Nil(t, Null().driverValue())
}

func TestBindArgs_PreservesOrder(t *testing.T) {
	args := bindArgs([]Param{Int(1), Text("two"), Bool(true)})
	assert.Equal(t, []any{int64(1), "two", true}, args)
}

func TestBindArgs_EmptyIsNil(t *testing.T) {
	assert.Nil(t, bindArgs(nil))
}
