package material

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaterialPasses(t *testing.T) {
	opaque := NewMaterial(WithName("stone"))
	require.NotNil(t, opaque.Pass(PassOpaque))
	require.NotNil(t, opaque.Pass(PassShadow))
	assert.Nil(t, opaque.Pass(PassAlpha))
	assert.Equal(t, opaque, opaque.Pass(PassOpaque).Material())

	glass := NewMaterial(WithAlpha())
	require.NotNil(t, glass.Pass(PassAlpha))
	assert.Nil(t, glass.Pass(PassOpaque))
	assert.Equal(t, BlendAlpha, glass.Pass(PassAlpha).Blend)
	assert.NotEqual(t, opaque.Pass(PassOpaque).ID, opaque.Pass(PassShadow).ID)

	assert.Nil(t, opaque.SetPass(PassShadow, false))
	assert.Nil(t, opaque.Pass(PassShadow))
}

func TestSortKeyTrackerKeepsMinimumPerFrame(t *testing.T) {
	var tr SortKeyTracker
	tr.Record(1, 10)
	tr.Record(1, 5)
	tr.Record(1, 7)
	first := tr.Distance()

	tr.Record(2, 20)
	assert.Equal(t, uint32(2), tr.Frame())
	assert.Greater(t, tr.Distance(), first, "a new frame overwrites the old minimum")

	var ref SortKeyTracker
	ref.Record(1, 5)
	assert.Equal(t, ref.Distance(), first)
}

func TestSortKeyTrackerConcurrent(t *testing.T) {
	var tr, want SortKeyTracker
	want.Record(3, 1)

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(3, float32(64-i))
		}()
	}
	wg.Wait()
	assert.Equal(t, want.Distance(), tr.Distance())
}

func TestGPUMaterialParamsMarshal(t *testing.T) {
	p := NewGPUMaterialParams(NewMaterial(WithBaseColor([4]float32{1, 0, 0, 1}), WithRoughness(0.5)))
	buf := p.Marshal()
	assert.Len(t, buf, p.Size())
}
