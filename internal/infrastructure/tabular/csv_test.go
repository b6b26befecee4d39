package tabular_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/infrastructure/tabular"
)

func TestCSVCodec_Decode(t *testing.T) {
	codec := tabular.NewCSVCodec()

	table, err := codec.Decode(strings.NewReader("\ufeffTime, Amount ,note\n0,1.5,\"a, b\"\n1,,x\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Time", "Amount", "note"}, table.Columns)
	assert.Equal(t, [][]string{{"0", "1.5", "a, b"}, {"1", "", "x"}}, table.Rows)
}

func TestCSVCodec_DecodeRaggedRowsAreSchemaMismatch(t *testing.T) {
	table, err := tabular.NewCSVCodec().Decode(strings.NewReader("a,b\n1,2\n3\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, table.Validate(), model.ErrSchemaMismatch)
}

func TestCSVCodec_DecodeHeaderOnly(t *testing.T) {
	table, err := tabular.NewCSVCodec().Decode(strings.NewReader("Time,Amount\n"))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.ErrorIs(t, table.Validate(), model.ErrSchemaMismatch)
}

func TestCSVCodec_DecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "binary", input: "PK\x03\x04\x00\x00xlsx"},
		{name: "bare quote", input: "a,b\n1,\"2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tabular.NewCSVCodec().Decode(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
		})
	}
}

func TestCSVCodec_EncodeRoundTrip(t *testing.T) {
	codec := tabular.NewCSVCodec()
	in := model.Table{
		Columns: []string{"note", "prediction", "probability"},
		Rows:    [][]string{{"has, comma", "1", "0.85"}, {"plain", "0", "0.1"}},
	}

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, in))
	assert.Equal(t, "note,prediction,probability\n\"has, comma\",1,0.85\nplain,0,0.1\n", buf.String())

	out, err := codec.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCSVCodec_Semicolon(t *testing.T) {
	codec := tabular.NewCSVCodec(tabular.WithComma(';'))
	table, err := codec.Decode(strings.NewReader("a;b\n1;2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Columns)
	assert.Equal(t, ".csv", codec.Extension())
}
