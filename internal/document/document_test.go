package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSONKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	v := Mapping(
		Field{Key: "zeta", Value: Number(5)},
		Field{Key: "alpha", Value: Sequence(String("a"), Bool(true), Null())},
		Field{Key: "mid", Value: Mapping(Field{Key: "x", Value: Number(1.5)})},
	)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":5,"alpha":["a",true,null],"mid":{"x":1.5}}`, string(raw))
}

func TestMarshalJSONEmptyContainers(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Sequence(Mapping(), Sequence()))
	require.NoError(t, err)
	assert.Equal(t, `[{},[]]`, string(raw))
}

func TestUnmarshalJSONRoundTrip(t *testing.T) {
	t.Parallel()

	in := `{"b":{"c":[1,"two",false,null]},"a":"x"}`
	var v Value
	require.NoError(t, json.Unmarshal([]byte(in), &v))

	require.Equal(t, KindMapping, v.Kind())
	fields := v.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "b", fields[0].Key)
	assert.Equal(t, "a", fields[1].Key)

	c, ok := v.Path("b", "c")
	require.True(t, ok)
	require.Equal(t, 4, c.Len())
	first, _ := c.Index(0)
	n, ok := first.Num()
	require.True(t, ok)
	assert.InDelta(t, 1.0, n, 0)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestMappingRepeatedKeyKeepsFirstPositionLastValue(t *testing.T) {
	t.Parallel()

	v := Mapping(
		Field{Key: "a", Value: Number(1)},
		Field{Key: "b", Value: Number(2)},
		Field{Key: "a", Value: Number(3)},
	)

	require.Equal(t, 2, v.Len())
	fields := v.Fields()
	assert.Equal(t, "a", fields[0].Key)
	n, _ := fields[0].Value.Num()
	assert.InDelta(t, 3.0, n, 0)
}

func TestAccessorsOnWrongKind(t *testing.T) {
	t.Parallel()

	s := String("x")
	_, ok := s.Get("k")
	assert.False(t, ok)
	_, ok = s.Index(0)
	assert.False(t, ok)
	assert.Nil(t, s.Items())
	assert.Nil(t, s.Fields())
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.IsScalar())
	assert.Equal(t, KindNull, Value{}.Kind())
	assert.Equal(t, "mapping", KindMapping.String())
}
