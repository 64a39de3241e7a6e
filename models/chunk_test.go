package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkIsStructured(t *testing.T) {
	cases := []struct {
		chunkType string
		want      bool
	}{
		{"structured", true},
		{"Structured", true},
		{"STRUCTURED", true},
		{" structured ", true},
		{"text", false},
		{"", false},
	}
	for _, tc := range cases {
		ct := tc.chunkType
		chunk := Chunk{ChunkType: &ct}
		assert.Equal(t, tc.want, chunk.IsStructured(), "chunk_type=%q", tc.chunkType)
	}

	assert.False(t, (&Chunk{}).IsStructured())
}
