package bencoding

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		want    any
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "positive number",
			raw:     []byte("i234e"),
			want:    234,
			wantErr: assert.NoError,
		},
		{
			name:    "negative number",
			raw:     []byte("i-1e"),
			want:    -1,
			wantErr: assert.NoError,
		},
		{
			name:    "invalid number (0 padding)",
			raw:     []byte("i010e"),
			wantErr: assert.Error,
		},
		{
			name:    "invalid number (negative zero)",
			raw:     []byte("i-0e"),
			wantErr: assert.Error,
		},
		{
			name:    "invalid number (empty payload)",
			raw:     []byte("i e"),
			wantErr: assert.Error,
		},
		{
			name:    "invalid number (invalid contents)",
			raw:     []byte("i3f23e"),
			wantErr: assert.Error,
		},
		{
			name:    "invalid number (missing i)",
			raw:     []byte("33e"),
			wantErr: assert.Error,
		},
		{
			name:    "invalid number (missing e)",
			raw:     []byte("i33"),
			wantErr: assert.Error,
		},
		{
			name:    "string",
			raw:     []byte("22:hello, world! 123 i1el"),
			want:    "hello, world! 123 i1el",
			wantErr: assert.NoError,
		},
		{
			name:    "empty string",
			raw:     []byte("0:"),
			want:    "",
			wantErr: assert.NoError,
		},
		{
			name:    "string with trailing bytes",
			raw:     []byte("2:ab c"),
			want:    "ab",
			wantErr: assert.NoError,
		},
		{
			name:    "invalid string (length mismatch)",
			raw:     []byte("18:hello"),
			wantErr: assert.Error,
		},
		{
			name:    "[]int",
			raw:     []byte("li1ei2ei-10ee"),
			want:    []any{1, 2, -10},
			wantErr: assert.NoError,
		},
		{
			name:    "[]string",
			raw:     []byte("l4:spam4:eggse"),
			want:    []any{"spam", "eggs"},
			wantErr: assert.NoError,
		},
		{
			name:    "dict",
			raw:     []byte("d3:cow3:moo4:spaml1:a1:bee"),
			want:    map[string]any{"cow": "moo", "spam": []any{"a", "b"}},
			wantErr: assert.NoError,
		},
		{
			name:    "dict with duplicate key",
			raw:     []byte("d1:ai1e1:ai2ee"),
			wantErr: assert.Error,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unmarshal(bytes.NewReader(tt.raw))
			if !tt.wantErr(t, err, fmt.Sprintf("Unmarshal(%s)", tt.raw)) {
				return
			}
			assert.Equalf(t, tt.want, got, "Unmarshal(%s)", tt.raw)
		})
	}
}

func TestDecode_TrailingBytes(t *testing.T) {
	_, err := Decode([]byte("2:ab c"))
	assert.Error(t, err)
	var decErr *DecodeError
	assert.True(t, errors.As(err, &decErr))
	assert.Equal(t, TrailingBytes, decErr.Kind)
}

func TestDecode_RoundTrip(t *testing.T) {
	canonical := []byte("d3:cow3:moo4:spaml1:a1:bee")
	v, err := Decode(canonical)
	assert.NoError(t, err)
	assert.Equal(t, canonical, Encode(v))
}
