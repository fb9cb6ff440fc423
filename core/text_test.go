package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "Guntur", want: "guntur"},
		{name: "trims", in: "  Andhra Pradesh \t", want: "andhra pradesh"},
		{name: "keeps inner spacing", in: "Road  Works", want: "road  works"},
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: "   ", want: ""},
		{name: "folds non ascii", in: "ÉCOLE", want: "école"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestNormalizeRecord(t *testing.T) {
	in := Record{
		ID:       " T-1 ",
		Name:     "Road Works",
		Locality: "GUNTUR",
		Link:     " https://Example.com/Tender?ID=1 ",
	}
	out := NormalizeRecord(in)

	assert.Equal(t, "t-1", out.ID)
	assert.Equal(t, "road works", out.Name)
	assert.Equal(t, "guntur", out.Locality)
	assert.Equal(t, "https://Example.com/Tender?ID=1", out.Link)
	assert.Equal(t, out, NormalizeRecord(out))
}
