package index

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `,latent_0,latent_1,Artist(s),Genre,song,Similar Artist 1,Similar Song 1,Similarity Score 1
0,1.0,0.0,Drake,hip hop,One Dance,Wizkid,Come Closer,0.97
1,0.0,1.0,Adele,pop,Hello,Sam Smith,Stay With Me,0.88
2,0.9,0.1,"Earth, Wind & Fire",funk,September,,,
`

func TestReadCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("Sample", func(t *testing.T) {
		s, err := ReadCSV(ctx, strings.NewReader(sampleCSV))
		require.NoError(t, err)
		require.Equal(t, 3, s.Len())
		assert.Equal(t, 2, s.Dim())

		song := s.Song(2)
		assert.Equal(t, "Earth, Wind & Fire", song.Artist)
		assert.Equal(t, "September", song.Title)
		assert.Equal(t, []float32{0.9, 0.1}, s.Vector(2))

		first := s.Song(0)
		assert.Equal(t, Similar{Artist: "Wizkid", Song: "Come Closer", Score: 0.97}, first.Similar[0])
		assert.Nil(t, first.Extra)
	})

	t.Run("HeaderOnly", func(t *testing.T) {
		s, err := ReadCSV(ctx, strings.NewReader("latent_0,latent_1,song\n"))
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("EmptyInput", func(t *testing.T) {
		_, err := ReadCSV(ctx, strings.NewReader(""))
		assert.ErrorIs(t, err, ErrNoVectorColumns)
	})

	t.Run("MalformedVector", func(t *testing.T) {
		_, err := ReadCSV(ctx, strings.NewReader("latent_0,song\n0.5,a\noops,b\n"))
		var me *MalformedRowError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, 2, me.Row)
		assert.Equal(t, "latent_0", me.Column)
		assert.Equal(t, "oops", me.Value)
	})

	t.Run("ShortRow", func(t *testing.T) {
		_, err := ReadCSV(ctx, strings.NewReader("latent_0,song\n0.5\n"))
		var me *MalformedRowError
		assert.ErrorAs(t, err, &me)
	})

	t.Run("BrokenQuoting", func(t *testing.T) {
		_, err := ReadCSV(ctx, strings.NewReader("latent_0,song\n0.5,a\"b\n"))
		var me *MalformedRowError
		assert.ErrorAs(t, err, &me)
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ReadCSV(cctx, strings.NewReader(sampleCSV))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
