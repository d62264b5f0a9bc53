package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/recordstore/memory"
	"github.com/warp/leave-register/recordstore/storetest"
)

func TestMemory_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.BlobStore { return memory.New() })
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := memory.New()
	content := []byte(`{"a":1}`)
	_, err := m.Put(ctx, "x.json", content, "")
	require.NoError(t, err)

	content[2] = 'b'
	blob, err := m.Get(ctx, "x.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(blob.Content))

	m.Reset()
	assert.Equal(t, 0, m.Len())
}
