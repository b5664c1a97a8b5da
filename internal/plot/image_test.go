package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestImageRendererWritesEveryKind(t *testing.T) {
	tbl, _ := fixture()
	dir := filepath.Join(t.TempDir(), "plots")
	jobs := []Job{
		{Kind: Hist, Columns: []string{"age"}},
		{Kind: Box, Columns: []string{"age"}},
		{Kind: Bar, Columns: []string{"city"}},
		{Kind: Scatter, Columns: []string{"age", "income"}},
		{Kind: Line, Columns: []string{"joined", "age"}},
	}
	for _, job := range jobs {
		t.Run(string(job.Kind), func(t *testing.T) {
			r := ImageRenderer{Data: DataRenderer{NewID: func() string { return "p-" + string(job.Kind) }}, Dir: dir}
			art, err := r.Render(tbl, job)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "p-"+string(job.Kind)+".png"), art.Image)
			assert.NotEmpty(t, art.Title)
			body, err := os.ReadFile(art.Image)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(body, pngMagic), "png header expected")
		})
	}
}

func TestImageRendererSVG(t *testing.T) {
	tbl, _ := fixture()
	r := ImageRenderer{Data: DataRenderer{NewID: fixedID}, Dir: t.TempDir(), Format: FormatSVG}
	art, err := r.Render(tbl, Job{Kind: Hist, Columns: []string{"age"}})
	require.NoError(t, err)
	assert.Equal(t, ".svg", filepath.Ext(art.Image))
	body, err := os.ReadFile(art.Image)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<svg")
	assert.Len(t, art.Series.Bins, DefaultBins)
}

func TestImageRendererFailuresDropTheJob(t *testing.T) {
	tbl, _ := fixture()
	r := ImageRenderer{Data: DataRenderer{}, Dir: t.TempDir(), Format: "bmp"}
	_, err := r.Render(tbl, Job{Kind: Hist, Columns: []string{"age"}})
	assert.ErrorContains(t, err, "encode bmp")

	_, err = ImageRenderer{Dir: t.TempDir()}.Render(tbl, Job{Kind: Hist, Columns: []string{"nope"}})
	assert.ErrorContains(t, err, "not found")
}
